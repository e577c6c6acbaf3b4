// Package memory provides an in-memory promotion store for local runs and
// tests. The mutex gives it the same atomicity guarantee on AdvanceKey that
// the Postgres conditional update provides across processes.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/promowatch/promowatch/internal/promo"
)

// Store keeps the single promotion record in process memory.
type Store struct {
	mu  sync.Mutex
	rec *promo.Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// FindLatest returns a copy of the stored record, or nil when none exists.
func (s *Store) FindLatest(_ context.Context) (*promo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

// Create inserts the first record.
func (s *Store) Create(_ context.Context, rec promo.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		return &promo.StoreError{Op: "create", Err: fmt.Errorf("record %s already exists", s.rec.ID)}
	}
	cp := rec
	s.rec = &cp
	return nil
}

// RefreshImage updates only the image fields and timestamp.
func (s *Store) RefreshImage(_ context.Context, id, imageKey, compositeURL string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil || s.rec.ID != id {
		return &promo.StoreError{Op: "refresh_image", Err: promo.ErrNotFound}
	}
	s.rec.ImageKey = imageKey
	s.rec.CompositeImageURL = compositeURL
	s.rec.ObservedAt = at
	return nil
}

// AdvanceKey replaces the record only while its notification key still
// equals fromKey. Returns 1 on success and 0 when another caller advanced
// the key first.
func (s *Store) AdvanceKey(_ context.Context, fromKey string, rec promo.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil || s.rec.LastNotifiedKey != fromKey {
		return 0, nil
	}
	cp := rec
	s.rec = &cp
	return 1, nil
}

// Close is a no-op.
func (s *Store) Close() {}
