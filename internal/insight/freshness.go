package insight

import "time"

// Gate decides whether previously collected reviews are recent enough to
// skip a re-scrape. It is a pure predicate over the restaurant's
// LastRefreshedAt timestamp; there is no separate cache storage.
type Gate struct {
	MaxAge time.Duration
}

// DefaultMaxAge is how long collected reviews stay usable.
const DefaultMaxAge = 7 * 24 * time.Hour

// NewGate builds a Gate, substituting DefaultMaxAge for non-positive values.
func NewGate(maxAge time.Duration) Gate {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return Gate{MaxAge: maxAge}
}

// Fresh reports whether the restaurant's reviews were refreshed within
// MaxAge of now. A restaurant that was never refreshed is never fresh.
func (g Gate) Fresh(r Restaurant, now time.Time) bool {
	if r.LastRefreshedAt == nil {
		return false
	}
	return now.Sub(*r.LastRefreshedAt) <= g.MaxAge
}
