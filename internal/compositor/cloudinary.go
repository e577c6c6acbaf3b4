// Package compositor builds presentation URLs for banner images by
// compositing them over a solid background through the Cloudinary fetch
// API. Pure URL construction; no network calls.
package compositor

import (
	"fmt"
	"net/url"
)

// Cloudinary derives fetch-transform URLs for a configured cloud.
type Cloudinary struct {
	cloudName  string
	background string
}

// New creates a Cloudinary compositor. With an empty cloud name the
// compositor passes source URLs through untouched.
func New(cloudName, background string) *Cloudinary {
	return &Cloudinary{cloudName: cloudName, background: background}
}

// Compose returns the display URL for a banner image: the source fetched
// through Cloudinary with a background color and JPEG output. Empty input
// yields empty output; an unconfigured cloud passes the source through.
func (c *Cloudinary) Compose(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}
	if c.cloudName == "" {
		return sourceURL
	}
	return fmt.Sprintf(
		"https://res.cloudinary.com/%s/image/fetch/b_rgb:%s,f_jpg/%s",
		c.cloudName,
		c.background,
		url.QueryEscape(sourceURL),
	)
}
