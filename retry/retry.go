// Package retry defines the pluggable delay strategy used between
// consecutive failed fetch attempts for a resource key.
package retry

import "time"

// Strategy computes the wait before a retry.
//
// Semantics:
//   - Delay(n) returns the pause before the retry that follows the
//     (n+1)-th consecutive failure; n starts at 0 and resets to 0 on
//     any successful fetch.
//   - Implementations must be stateless and safe for concurrent use:
//     one Strategy instance is shared by every key of an engine.
type Strategy interface {
	Delay(attempt int) time.Duration
}
