package scraper

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/promo"
)

// Static scrapes the banner from server-rendered markup with colly. It is
// the cheap path for deployments where the target page does not need a
// browser.
type Static struct {
	cfg    Config
	logger *zap.Logger
}

// NewStatic creates a colly-backed scraper.
func NewStatic(cfg Config, logger *zap.Logger) (*Static, error) {
	cfg = cfg.withDefaults()
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("site url is required")
	}
	return &Static{cfg: cfg, logger: logger}, nil
}

// Close is a no-op; colly holds no long-lived resources here.
func (s *Static) Close() {}

// Scrape fetches the homepage and extracts the first banner match.
func (s *Static) Scrape(ctx context.Context) (promo.RawObservation, error) {
	c := colly.NewCollector(colly.StdlibContext(ctx))
	if s.cfg.UserAgent != "" {
		c.UserAgent = s.cfg.UserAgent
	}
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(s.cfg.NavigationTimeout)

	var (
		obs   promo.RawObservation
		found bool
	)
	c.OnHTML(s.cfg.Selector, func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		href, _ := e.DOM.Closest("a").Attr("href")
		obs = promo.RawObservation{
			Text:     e.Attr("alt"),
			ImageURL: e.Request.AbsoluteURL(e.Attr("src")),
			LinkURL:  resolveLink(s.cfg.SiteURL, href),
		}
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(s.cfg.SiteURL); err != nil {
		return promo.RawObservation{}, &promo.ScrapeError{Err: fmt.Errorf("visit %s: %w", s.cfg.SiteURL, err)}
	}
	c.Wait()

	if fetchErr != nil {
		return promo.RawObservation{}, &promo.ScrapeError{Err: fetchErr}
	}
	if !found {
		return promo.RawObservation{}, &promo.ScrapeError{Err: ErrBannerNotFound}
	}

	s.logger.Debug("banner scraped",
		zap.String("text", obs.Text),
		zap.String("image_url", obs.ImageURL),
		zap.String("link_url", obs.LinkURL),
	)
	return obs, nil
}
