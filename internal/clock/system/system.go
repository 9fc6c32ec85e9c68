// Package system provides a real clock implementation.
package system

import "time"

// Clock implements analysis.Clock using time.Now in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a Clock reporting times in loc. A nil loc means local time.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc}
}

// Now returns the current wall-clock time in the configured location.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc).Round(0)
}
