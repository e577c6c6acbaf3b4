package promo

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no persisted record matches the request.
var ErrNotFound = errors.New("record not found")

// ScrapeError wraps navigation, timeout and selector failures from the
// scraper. A run that fails here mutates nothing and retries next tick.
type ScrapeError struct {
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape: %v", e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// DispatchError wraps failures from the notification channel. Delivery is
// best effort: persisted state is not rolled back on dispatch failure.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: %v", e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// StoreError wraps persistence failures. The run aborts; no partial write
// is assumed durable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
