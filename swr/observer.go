package swr

import "time"

// Observer exposes fetch-lifecycle observability hooks. Events are
// advisory: implementations must not block and cannot influence retry
// timing or scheduling. A NoopObserver implementation is provided and
// used by default.
type Observer[K comparable] interface {
	// FetchAttempt fires when a fetch for key starts.
	FetchAttempt(key K, at time.Time)
	// FetchSuccess fires when a fetch completes without error.
	FetchSuccess(key K, elapsed time.Duration, at time.Time)
	// FetchError fires when a fetch fails; attempt is the number of
	// consecutive failures for the key, starting at 1.
	FetchError(key K, err error, attempt int, at time.Time)
	// SlowLoading fires once per fetch still running after the
	// configured LoadingTimeout.
	SlowLoading(key K, elapsed time.Duration, at time.Time)
	// Dedup fires for every request that joined an in-flight fetch
	// instead of issuing its own.
	Dedup(key K)
	// ActiveKeys reports the number of active keys after a
	// subscribe/unsubscribe.
	ActiveKeys(n int)
}

// NoopObserver is a drop-in Observer implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopObserver[K comparable] struct{}

func (NoopObserver[K]) FetchAttempt(K, time.Time)                {}
func (NoopObserver[K]) FetchSuccess(K, time.Duration, time.Time) {}
func (NoopObserver[K]) FetchError(K, error, int, time.Time)      {}
func (NoopObserver[K]) SlowLoading(K, time.Duration, time.Time)  {}
func (NoopObserver[K]) Dedup(K)                                  {}
func (NoopObserver[K]) ActiveKeys(int)                           {}

// Ensure NoopObserver implements the Observer interface at compile time.
var _ Observer[string] = NoopObserver[string]{}
