// Package fixed implements constant-delay retry.
package fixed

import (
	"time"

	"github.com/arbdash/revalid/retry"
)

// fixed waits the same delay after every failure. Useful when the data
// source rate-limits aggressively and doubling would overshoot the
// window, and in tests that need deterministic short delays.
type fixed struct {
	d time.Duration
}

// New returns a constant-delay strategy. Non-positive d falls back to 1s.
func New(d time.Duration) retry.Strategy {
	if d <= 0 {
		d = time.Second
	}
	return fixed{d: d}
}

// Delay returns the configured delay regardless of the attempt number.
func (f fixed) Delay(int) time.Duration { return f.d }
