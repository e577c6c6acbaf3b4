package scraper

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/promo"
)

// Headless scrapes the banner with a headless Chrome instance. The exec
// allocator lives for the process; each scrape opens its own tab context
// that is always torn down, success or failure.
type Headless struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewHeadless creates a headless scraper backed by chromedp.
func NewHeadless(cfg Config, logger *zap.Logger) (*Headless, error) {
	cfg = cfg.withDefaults()
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("site url is required")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Headless{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close tears down the browser allocator.
func (h *Headless) Close() {
	h.allocCancel()
}

type bannerExtract struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

// Scrape navigates to the homepage, waits for the banner to render and
// pulls caption, image and link out of the DOM. Any navigation, timeout or
// selector failure comes back as a *promo.ScrapeError.
func (h *Headless) Scrape(ctx context.Context) (promo.RawObservation, error) {
	taskCtx, taskCancel := chromedp.NewContext(h.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, h.cfg.NavigationTimeout)
	defer cancel()

	// Honor caller cancellation on top of the navigation deadline.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-taskCtx.Done():
		}
	}()

	var extract bannerExtract
	actions := []chromedp.Action{
		h.userAgentAction(),
		chromedp.Navigate(h.cfg.SiteURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(h.cfg.SettleDelay),
		chromedp.Evaluate(h.extractScript(), &extract),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return promo.RawObservation{}, &promo.ScrapeError{Err: fmt.Errorf("chromedp run: %w", err)}
	}
	if !extract.Found {
		return promo.RawObservation{}, &promo.ScrapeError{Err: ErrBannerNotFound}
	}

	obs := promo.RawObservation{
		Text:     extract.Text,
		ImageURL: extract.Image,
		LinkURL:  resolveLink(h.cfg.SiteURL, extract.Link),
	}
	h.logger.Debug("banner scraped",
		zap.String("text", obs.Text),
		zap.String("image_url", obs.ImageURL),
		zap.String("link_url", obs.LinkURL),
	)
	return obs, nil
}

func (h *Headless) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if h.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(h.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (h *Headless) extractScript() string {
	return fmt.Sprintf(`(() => {
	const img = document.querySelector(%q);
	if (!img) {
		return { found: false, text: "", image: "", link: "" };
	}
	const anchor = img.closest("a");
	return {
		found: true,
		text: img.alt || "",
		image: img.src || "",
		link: anchor ? (anchor.getAttribute("href") || "") : "",
	};
})()`, h.cfg.Selector)
}
