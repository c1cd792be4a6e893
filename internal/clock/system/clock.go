// Package system provides the wall-clock implementation of insight.Clock.
package system

import "time"

// Clock returns the current UTC time.
type Clock struct{}

// New constructs a system Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns time.Now in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
