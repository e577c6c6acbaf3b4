// Package scraper extracts the promotional banner from the target
// homepage. Two implementations exist: a chromedp-driven headless browser
// for pages that render the banner with JavaScript, and a colly-based
// static fetcher for server-rendered markup.
package scraper

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// DefaultSelector locates the homepage banner image.
const DefaultSelector = "section#portadaHome img[alt]"

const (
	defaultNavigationTimeout = 25 * time.Second
	defaultSettleDelay       = 3 * time.Second
)

// ErrBannerNotFound reports that the configured selector matched nothing.
var ErrBannerNotFound = errors.New("banner element not found")

// Config is shared by both scraper implementations.
type Config struct {
	SiteURL           string
	Selector          string
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay gives client-side rendering time to finish after the
	// document is ready. Only the headless scraper uses it.
	SettleDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Selector == "" {
		c.Selector = DefaultSelector
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = defaultNavigationTimeout
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	return c
}

// resolveLink absolutizes an anchor href against the site URL. Banner
// anchors on the target site are root-relative.
func resolveLink(siteURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(siteURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
