// Package expo implements capped exponential backoff.
package expo

import (
	"math"
	"time"

	"github.com/arbdash/revalid/retry"
)

// expo doubles the delay after each consecutive failure up to a cap:
// delay = min(base * 2^attempt, max).
type expo struct {
	base time.Duration
	max  time.Duration
}

// New returns a capped exponential backoff strategy.
// Non-positive base falls back to 1s, non-positive max to 16s.
func New(base, max time.Duration) retry.Strategy {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 16 * time.Second
	}
	if max < base {
		max = base
	}
	return expo{base: base, max: max}
}

// Delay returns min(base * 2^attempt, max). Negative attempts are
// treated as 0. Large attempts saturate at max instead of overflowing.
func (e expo) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(e.base) * math.Pow(2, float64(attempt))
	if d > float64(e.max) || math.IsInf(d, 1) {
		return e.max
	}
	return time.Duration(d)
}
