// Package postgres provides the Postgres-backed promotion store. The
// conditional UPDATE in AdvanceKey is the cross-process de-duplication
// primitive: only the process that flips last_notified_key may dispatch.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promowatch/promowatch/internal/promo"
)

// Schema:
//
//	CREATE TABLE promotions (
//	    id                  UUID PRIMARY KEY,
//	    text                TEXT NOT NULL,
//	    image_key           TEXT NOT NULL,
//	    link_key            TEXT NOT NULL,
//	    composite_image_url TEXT NOT NULL,
//	    baseline_text       TEXT NOT NULL,
//	    last_notified_key   TEXT NOT NULL,
//	    observed_at         TIMESTAMPTZ NOT NULL
//	);

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements promo.Store on a pgx connection pool.
type Store struct {
	pool pgxPool
}

// New creates a Store connected per cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool, primarily for tests.
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// FindLatest returns the most recently observed record, or nil when the
// table is empty.
func (s *Store) FindLatest(ctx context.Context) (*promo.Record, error) {
	query := `
		SELECT id, text, image_key, link_key, composite_image_url,
		       baseline_text, last_notified_key, observed_at
		FROM promotions
		ORDER BY observed_at DESC
		LIMIT 1;
	`
	var rec promo.Record
	err := s.pool.QueryRow(ctx, query).Scan(
		&rec.ID,
		&rec.Text,
		&rec.ImageKey,
		&rec.LinkKey,
		&rec.CompositeImageURL,
		&rec.BaselineText,
		&rec.LastNotifiedKey,
		&rec.ObservedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &promo.StoreError{Op: "find_latest", Err: err}
	}
	return &rec, nil
}

// Create inserts the first record.
func (s *Store) Create(ctx context.Context, rec promo.Record) error {
	query := `
		INSERT INTO promotions (id, text, image_key, link_key, composite_image_url,
		                        baseline_text, last_notified_key, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.Text,
		rec.ImageKey,
		rec.LinkKey,
		rec.CompositeImageURL,
		rec.BaselineText,
		rec.LastNotifiedKey,
		rec.ObservedAt,
	)
	if err != nil {
		return &promo.StoreError{Op: "create", Err: err}
	}
	return nil
}

// RefreshImage updates only the image fields and timestamp, leaving the
// notification key untouched.
func (s *Store) RefreshImage(ctx context.Context, id, imageKey, compositeURL string, at time.Time) error {
	query := `
		UPDATE promotions
		SET image_key = $1, composite_image_url = $2, observed_at = $3
		WHERE id = $4;
	`
	tag, err := s.pool.Exec(ctx, query, imageKey, compositeURL, at, id)
	if err != nil {
		return &promo.StoreError{Op: "refresh_image", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &promo.StoreError{Op: "refresh_image", Err: promo.ErrNotFound}
	}
	return nil
}

// AdvanceKey performs the compare-and-swap on last_notified_key. The WHERE
// clause makes the transition atomic on the database side; zero rows
// affected means another runner already advanced past fromKey.
func (s *Store) AdvanceKey(ctx context.Context, fromKey string, rec promo.Record) (int64, error) {
	query := `
		UPDATE promotions
		SET text = $1, image_key = $2, link_key = $3, composite_image_url = $4,
		    baseline_text = $5, last_notified_key = $6, observed_at = $7
		WHERE id = $8 AND last_notified_key = $9;
	`
	tag, err := s.pool.Exec(ctx, query,
		rec.Text,
		rec.ImageKey,
		rec.LinkKey,
		rec.CompositeImageURL,
		rec.BaselineText,
		rec.LastNotifiedKey,
		rec.ObservedAt,
		rec.ID,
		fromKey,
	)
	if err != nil {
		return 0, &promo.StoreError{Op: "advance_key", Err: err}
	}
	return tag.RowsAffected(), nil
}
