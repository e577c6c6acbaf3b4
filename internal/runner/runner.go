// Package runner coordinates one watch cycle: scrape, normalize, compose,
// compare, decide. It owns the single-flight guard and the schedule.
package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/metrics"
	"github.com/promowatch/promowatch/internal/promo"
)

// ErrRunInFlight reports that a run was dropped because the previous one
// has not finished.
var ErrRunInFlight = errors.New("run already in flight")

// Decider resolves an observation against the stored record.
type Decider interface {
	Decide(ctx context.Context, current promo.Promotion, previous *promo.Record) (promo.Outcome, error)
}

// Config tunes the run loop.
type Config struct {
	// SiteRoot is the normalization fallback for missing promo links.
	SiteRoot string
	// Interval between scheduled runs.
	Interval time.Duration
	// ScrapeTimeout bounds a single page fetch.
	ScrapeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.ScrapeTimeout <= 0 {
		c.ScrapeTimeout = 45 * time.Second
	}
	return c
}

// Runner drives the watch pipeline. At most one run executes at a time;
// overlapping triggers are dropped, not queued.
type Runner struct {
	cfg        Config
	scraper    promo.Scraper
	compositor promo.Compositor
	store      promo.Store
	decider    Decider
	clock      promo.Clock
	logger     *zap.Logger

	inFlight atomic.Bool
	status   *statusTracker
}

// New wires a runner from its collaborators.
func New(cfg Config, scraper promo.Scraper, compositor promo.Compositor, store promo.Store, decider Decider, clock promo.Clock, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:        cfg.withDefaults(),
		scraper:    scraper,
		compositor: compositor,
		store:      store,
		decider:    decider,
		clock:      clock,
		logger:     logger,
		status:     newStatusTracker(),
	}
}

// Status returns the current run snapshot for the health surface.
func (r *Runner) Status() Status {
	return r.status.snapshot()
}

// RunOnce executes a single watch cycle. It returns ErrRunInFlight without
// doing any work when another cycle is still executing.
func (r *Runner) RunOnce(ctx context.Context) (promo.Outcome, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		metrics.ObserveRunDropped()
		r.logger.Warn("run dropped, previous run still in flight")
		return "", ErrRunInFlight
	}
	defer r.inFlight.Store(false)

	metrics.SetRunInFlight(true)
	defer metrics.SetRunInFlight(false)

	start := r.clock.Now()
	r.status.begin(start)

	outcome, err := r.execute(ctx)
	elapsed := r.clock.Now().Sub(start)
	if err != nil {
		r.status.finishError(r.clock.Now(), err)
		metrics.ObserveRun("error", elapsed)
		return "", err
	}

	r.status.finishOK(r.clock.Now())
	metrics.ObserveRun(string(outcome), elapsed)
	return outcome, nil
}

func (r *Runner) execute(ctx context.Context) (promo.Outcome, error) {
	scrapeCtx, cancel := context.WithTimeout(ctx, r.cfg.ScrapeTimeout)
	defer cancel()

	obs, err := r.scraper.Scrape(scrapeCtx)
	if err != nil {
		metrics.ObserveScrapeFailure()
		return "", err
	}

	current := promo.Normalize(obs, r.cfg.SiteRoot)
	current.CompositeImageURL = r.compositor.Compose(obs.ImageURL)

	previous, err := r.store.FindLatest(ctx)
	if err != nil {
		return "", err
	}
	return r.decider.Decide(ctx, current, previous)
}

// Run performs an immediate cycle, then one per interval tick, until ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("runner started", zap.Duration("interval", r.cfg.Interval))

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.runScheduled(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped")
			return
		case <-ticker.C:
			r.runScheduled(ctx)
		}
	}
}

func (r *Runner) runScheduled(ctx context.Context) {
	outcome, err := r.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInFlight):
		// Already logged at the guard.
	case err != nil:
		r.logger.Error("run failed", zap.Error(err))
	default:
		r.logger.Info("run finished", zap.String("outcome", string(outcome)))
	}
}
