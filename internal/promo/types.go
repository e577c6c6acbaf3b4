// Package promo defines the domain model for homepage promotion watching:
// raw scrape results, their normalized identity-bearing form, the persisted
// record they are compared against, and the interfaces the run pipeline
// consumes.
package promo

import (
	"context"
	"time"
)

// RawObservation is what the scraper pulls off the homepage on one visit.
// Fields may be empty when the page loads partially or the banner element
// is missing; they are never nil-like sentinels.
type RawObservation struct {
	Text     string
	ImageURL string
	LinkURL  string
}

// Promotion is the canonical, comparable form of an observation.
// Two observations describe the same promotion iff Text, ImageKey and
// LinkKey are all equal.
type Promotion struct {
	Text string
	// ImageKey is the image URL with query string and fragment stripped.
	// Empty when no banner image was observed.
	ImageKey string
	// LinkKey is the normalized promo link, defaulting to the site root.
	LinkKey string
	// CompositeImageURL is the presentation URL (image over a background
	// color via the image CDN). Informational only; never compared.
	CompositeImageURL string
}

// Record is the single most-recent persisted promotion state.
type Record struct {
	ID                string
	Text              string
	ImageKey          string
	LinkKey           string
	CompositeImageURL string
	// BaselineText is the "resting" banner caption, as opposed to a
	// transient flash promotion.
	BaselineText string
	// LastNotifiedKey is the notification key last successfully advanced.
	// A given key is announced at most once.
	LastNotifiedKey string
	ObservedAt      time.Time
}

// Variant selects the notification message shape.
type Variant string

const (
	// VariantFull sends the composited banner image with the caption.
	VariantFull Variant = "full"
	// VariantTextOnly sends the caption alone.
	VariantTextOnly Variant = "text_only"
)

// Notification is the payload handed to the outbound channel.
type Notification struct {
	Key      string
	Text     string
	Variant  Variant
	ImageURL string
	LinkURL  string
	// ReturnToBaseline marks a promotion ending, i.e. the banner went
	// back to its resting caption.
	ReturnToBaseline bool
}

// Outcome is the terminal result of one decision pass.
type Outcome string

const (
	OutcomeSkipped             Outcome = "skipped"
	OutcomeNotified            Outcome = "notified"
	OutcomeSuppressedDuplicate Outcome = "suppressed_duplicate"
)

// Scraper fetches the current promotional banner from the target site.
type Scraper interface {
	Scrape(ctx context.Context) (RawObservation, error)
}

// Compositor derives a presentation URL for a banner image. Pure; absent
// input yields absent output.
type Compositor interface {
	Compose(sourceURL string) string
}

// Notifier delivers a promotion announcement to the outbound channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Store persists the single promotion record. Implementations must make
// AdvanceKey atomic with respect to concurrent callers; it is the only
// cross-process correctness mechanism the pipeline has.
type Store interface {
	// FindLatest returns the most recent record, or nil when none exists.
	FindLatest(ctx context.Context) (*Record, error)
	// Create inserts the first record.
	Create(ctx context.Context, rec Record) error
	// RefreshImage updates only the image fields and timestamp of an
	// existing record, without touching the notification key.
	RefreshImage(ctx context.Context, id, imageKey, compositeURL string, at time.Time) error
	// AdvanceKey replaces the record's fields only if its notification
	// key still equals fromKey, returning the number of rows affected.
	// Zero means another runner won the race.
	AdvanceKey(ctx context.Context, fromKey string, rec Record) (int64, error)
	Close()
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}
