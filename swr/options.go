package swr

import (
	"time"

	"github.com/arbdash/revalid/retry"
)

// Defaults applied in New for zero-valued Options fields.
const (
	DefaultDedupingInterval = 2 * time.Second
	DefaultErrorRetryCount  = 5
	DefaultRetryBase        = time.Second
	DefaultRetryCap         = 16 * time.Second
)

// Clock provides time in UnixNano; useful for deterministic tests.
// Note: the clock drives timestamps and the deduping window; wake-up
// timers always run on wall time.
type Clock interface{ NowUnixNano() int64 }

// Options configures the engine. Zero values are safe;
// sane defaults are applied in New():
//   - nil Observer          => NoopObserver
//   - nil Retry             => exponential, 1s base / 16s cap
//   - DedupingInterval <= 0 => DefaultDedupingInterval
//   - ErrorRetryCount == 0  => DefaultErrorRetryCount
//   - Shards <= 0           => auto (rounded up to power of two)
type Options[K comparable, V any] struct {
	// RefreshInterval is the fixed period between automatic refetches
	// of an active key, measured from the start of the previous fetch.
	// Zero disables periodic refresh; retries and manual Refresh still
	// run.
	RefreshInterval time.Duration

	// DedupingInterval is the window in which requests for the same key
	// collapse into one underlying fetch. A request inside the window
	// joins the in-flight fetch if there is one, otherwise it is served
	// from the cached state.
	DedupingInterval time.Duration

	// ErrorRetryCount caps consecutive automatic retries after a
	// failure. Once exhausted the key stays in error state until the
	// next periodic refresh or a manual Refresh. 0 applies the default;
	// a negative value disables automatic retry entirely.
	ErrorRetryCount int

	// Retry picks the delay between consecutive failures.
	// Nil => capped exponential backoff (DefaultRetryBase/DefaultRetryCap).
	Retry retry.Strategy

	// LoadingTimeout, when positive, emits a SlowLoading event for any
	// fetch still running after this long. Reporting only; the fetch is
	// not interrupted.
	LoadingTimeout time.Duration

	// RevalidateOnFocus lets NotifyFocus trigger revalidation of all
	// active keys. Off by default: a steadily refreshing dashboard
	// should not be interrupted by focus flapping.
	RevalidateOnFocus bool

	// RevalidateOnReconnect lets NotifyReconnect trigger revalidation
	// of all active keys.
	RevalidateOnReconnect bool

	// DropStaleData makes a failed revalidation clear previously
	// fetched data instead of serving it stale. Leave unset for the
	// anti-flicker behavior: last-known-good data survives failures.
	DropStaleData bool

	// Fetcher is the fallback fetch function for Subscribe calls that
	// pass nil. Subscribing with no fetcher at all fails with
	// ErrNoFetcher.
	Fetcher Fetcher[K, V]

	// Observer receives fetch lifecycle events. Advisory only: it must
	// never influence scheduling. Nil => NoopObserver.
	Observer Observer[K]

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock

	// Shards defines the number of registry shards. If 0, an automatic
	// value is chosen (≈ 2*GOMAXPROCS) and rounded to the next power of two.
	Shards int
}

// keyConfig is the per-entry schedule, fixed when the entry is created
// by the key's first subscriber.
type keyConfig struct {
	refreshInterval  time.Duration
	dedupingInterval time.Duration
	retryBudget      int // <= 0 disables automatic retry
	strategy         retry.Strategy
	loadingTimeout   time.Duration
	dropStale        bool
}

// KeyOption overrides engine defaults for a single key at Subscribe
// time. Overrides bind when the key's entry is created; subscribers
// joining an existing entry attach to its schedule unchanged.
type KeyOption func(*keyConfig)

// WithRefreshInterval overrides Options.RefreshInterval for this key.
// Zero disables periodic refresh.
func WithRefreshInterval(d time.Duration) KeyOption {
	return func(c *keyConfig) { c.refreshInterval = d }
}

// WithDedupingInterval overrides Options.DedupingInterval for this key.
func WithDedupingInterval(d time.Duration) KeyOption {
	return func(c *keyConfig) { c.dedupingInterval = d }
}

// WithRetryBudget overrides the consecutive-retry cap for this key.
// n <= 0 disables automatic retry.
func WithRetryBudget(n int) KeyOption {
	return func(c *keyConfig) { c.retryBudget = n }
}

// WithRetryStrategy overrides the retry delay strategy for this key.
func WithRetryStrategy(s retry.Strategy) KeyOption {
	return func(c *keyConfig) {
		if s != nil {
			c.strategy = s
		}
	}
}

// WithLoadingTimeout overrides Options.LoadingTimeout for this key.
func WithLoadingTimeout(d time.Duration) KeyOption {
	return func(c *keyConfig) { c.loadingTimeout = d }
}

// WithKeepPreviousData sets whether this key serves last-known-good
// data through failed revalidations (true, the engine default) or
// clears it on error (false).
func WithKeepPreviousData(keep bool) KeyOption {
	return func(c *keyConfig) { c.dropStale = !keep }
}
