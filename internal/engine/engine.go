// Package engine implements the notification decision state machine: given
// a classified change it decides what to persist, whether to notify, and
// guarantees each promotion key is announced at most once.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/metrics"
	"github.com/promowatch/promowatch/internal/promo"
)

// Engine decides the terminal outcome of one observation.
type Engine struct {
	store    promo.Store
	notifier promo.Notifier
	clock    promo.Clock
	opts     promo.ClassifyOptions
	logger   *zap.Logger
}

// New constructs an Engine.
func New(store promo.Store, notifier promo.Notifier, clock promo.Clock, opts promo.ClassifyOptions, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		clock:    clock,
		opts:     opts,
		logger:   logger,
	}
}

// Decide runs the state machine for one normalized observation against the
// last persisted record. It returns the outcome and an error only for
// persistence failures; dispatch failures are logged and absorbed, since
// state has already advanced and delivery is at-most-once.
func (e *Engine) Decide(ctx context.Context, current promo.Promotion, previous *promo.Record) (promo.Outcome, error) {
	change := promo.Classify(current, previous, e.opts)
	now := e.clock.Now()

	switch change.Kind {
	case promo.ChangeFirstRun:
		return e.establishBaseline(ctx, current, now)

	case promo.ChangeNone:
		return promo.OutcomeSkipped, nil

	case promo.ChangeImageOnly:
		// CDN churn: keep the stored image fresh but say nothing.
		if err := e.store.RefreshImage(ctx, previous.ID, current.ImageKey, current.CompositeImageURL, now); err != nil {
			return "", err
		}
		e.logger.Debug("image url churned, record refreshed",
			zap.String("image_key", current.ImageKey),
		)
		return promo.OutcomeSkipped, nil

	case promo.ChangeReal:
		return e.handleRealChange(ctx, current, previous, change, now)

	default:
		return "", fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

// establishBaseline persists the very first record without notifying, so a
// restart or redeploy never announces a promotion that was already on the
// page.
func (e *Engine) establishBaseline(ctx context.Context, current promo.Promotion, now time.Time) (promo.Outcome, error) {
	rec := promo.Record{
		ID:                uuid.NewString(),
		Text:              current.Text,
		ImageKey:          current.ImageKey,
		LinkKey:           current.LinkKey,
		CompositeImageURL: current.CompositeImageURL,
		BaselineText:      current.Text,
		LastNotifiedKey:   promo.BuildKey(current),
		ObservedAt:        now,
	}
	if err := e.store.Create(ctx, rec); err != nil {
		return "", err
	}
	e.logger.Info("silent start: baseline established",
		zap.String("text", current.Text),
		zap.String("key", rec.LastNotifiedKey),
	)
	return promo.OutcomeSkipped, nil
}

func (e *Engine) handleRealChange(ctx context.Context, current promo.Promotion, previous *promo.Record, change promo.Change, now time.Time) (promo.Outcome, error) {
	if current.Text == "" {
		// Partial page loads regularly scrape an empty caption; never
		// announce those even when the key moved.
		e.logger.Warn("real change with empty caption, skipping",
			zap.String("image_key", current.ImageKey),
		)
		return promo.OutcomeSkipped, nil
	}

	key := promo.BuildKey(current)
	if key == previous.LastNotifiedKey {
		// Already announced, e.g. a re-crawl before state settled.
		return promo.OutcomeSuppressedDuplicate, nil
	}

	rec := promo.Record{
		ID:                previous.ID,
		Text:              current.Text,
		ImageKey:          current.ImageKey,
		LinkKey:           current.LinkKey,
		CompositeImageURL: current.CompositeImageURL,
		BaselineText:      nextBaseline(change, previous, current),
		LastNotifiedKey:   key,
		ObservedAt:        now,
	}
	affected, err := e.store.AdvanceKey(ctx, previous.LastNotifiedKey, rec)
	if err != nil {
		return "", err
	}
	if affected == 0 {
		// Another runner advanced the key first; it owns the dispatch.
		e.logger.Info("lost notification race, suppressing duplicate",
			zap.String("key", key),
		)
		return promo.OutcomeSuppressedDuplicate, nil
	}

	variant := promo.VariantTextOnly
	if change.HasVisual {
		variant = promo.VariantFull
	}
	notification := promo.Notification{
		Key:              key,
		Text:             current.Text,
		Variant:          variant,
		ImageURL:         imageFor(current),
		LinkURL:          current.LinkKey,
		ReturnToBaseline: change.ReturnToBaseline,
	}
	if err := e.notifier.Send(ctx, notification); err != nil {
		// State already advanced; delivery is best effort. Rolling back
		// here would re-announce on the next run and risk a retry storm
		// against the channel.
		metrics.ObserveDispatchFailure()
		e.logger.Error("notification dispatch failed",
			zap.String("key", key),
			zap.Error(err),
		)
	} else {
		metrics.ObserveNotification(string(variant))
	}
	return promo.OutcomeNotified, nil
}

// nextBaseline keeps the resting caption stable across flash promotions: a
// transient change must not move the baseline, or the later return could
// never be recognized. A return refreshes it to the latest accepted resting
// value.
func nextBaseline(change promo.Change, previous *promo.Record, current promo.Promotion) string {
	if change.ReturnToBaseline {
		return current.Text
	}
	return previous.BaselineText
}

func imageFor(p promo.Promotion) string {
	if p.CompositeImageURL != "" {
		return p.CompositeImageURL
	}
	return p.ImageKey
}
