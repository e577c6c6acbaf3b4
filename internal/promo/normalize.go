package promo

import (
	"net/url"
	"regexp"
	"strings"
)

// mojibake repairs the double-encoded UTF-8 sequences and HTML entities the
// site is known to serve in banner captions. Longer sequences come first so
// the bare "Ã" rule does not shadow them.
var mojibake = strings.NewReplacer(
	"Â¡", "¡",
	"Â¿", "¿",
	"Ã¡", "á",
	"Ã©", "é",
	"Ã­", "í",
	"Ã³", "ó",
	"Ãº", "ú",
	"Ã±", "ñ",
	"Ã", "Á",
	"&iexcl;", "¡",
)

var (
	boilerplateRe = regexp.MustCompile(`(?i)\b(?:ver ofertas|ver m[áa]s|see more|view offers?)\b`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizeText canonicalizes a scraped banner caption: repairs known
// encoding damage, drops boilerplate call-to-action phrases, collapses
// whitespace runs and trims. Empty or absent input yields the empty string,
// which is itself a valid caption value.
func NormalizeText(raw string) string {
	s := mojibake.Replace(raw)
	s = boilerplateRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeURL reduces a URL to its identity-bearing part: scheme, host and
// path, with query string and fragment discarded. Image CDNs churn query
// parameters on cache invalidation, so they must not participate in
// promotion identity. Unparseable input degrades to the substring before
// the first '?'. Absent input yields fallback.
func NormalizeURL(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	u, err := url.Parse(raw)
	if err != nil {
		trimmed := strings.TrimSpace(strings.SplitN(raw, "?", 2)[0])
		if trimmed == "" {
			return fallback
		}
		return trimmed
	}

	if u.Host == "" {
		return u.Path
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// Normalize builds the canonical Promotion for one observation. siteRoot is
// the fallback link identity when the banner carries no anchor.
func Normalize(obs RawObservation, siteRoot string) Promotion {
	return Promotion{
		Text:     NormalizeText(obs.Text),
		ImageKey: NormalizeURL(obs.ImageURL, ""),
		LinkKey:  NormalizeURL(obs.LinkURL, siteRoot),
	}
}
