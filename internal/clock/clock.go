// Package clock provides the wall-clock implementation of promo.Clock.
package clock

import "time"

// System reads the real wall clock in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}
