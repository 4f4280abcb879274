package swr

import (
	"context"
	"time"
)

// Fetcher loads the current value of a resource key. Any non-nil error
// marks the attempt as failed; the engine records the error as-is and
// does not try to classify it — transient network failures and
// deterministic fetcher bugs flow through the same retry policy.
type Fetcher[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Snapshot is a consumer-facing view of a resource's state.
//
// Data holds the value of the last successful fetch; HasData reports
// whether one ever happened. Err holds the error of the most recent
// failed attempt and is nil after a success or a Mutate. Data and Err
// can both be set at once: stale data is served alongside the error
// that made it stale, so a consumer never has to render an empty view
// once a first fetch succeeded.
type Snapshot[V any] struct {
	Data       V
	HasData    bool
	Err        error
	Validating bool
	FetchedAt  time.Time // completion time of the last successful fetch
}

// Engine keeps a set of resource keys fresh: per active key it runs a
// background refresh loop, retries failures with backoff, deduplicates
// concurrent requests, and retains the last successful value across
// failed revalidations. All methods are safe for concurrent use.
type Engine[K comparable, V any] interface {
	// Subscribe registers interest in key and returns a handle on its
	// state. The first subscriber creates the key's entry, fixes its
	// schedule (engine Options plus any KeyOption overrides), and
	// triggers the initial fetch; later subscribers attach to the
	// existing entry as-is. A nil fetch falls back to Options.Fetcher;
	// if that is nil too, ErrNoFetcher is returned.
	Subscribe(key K, fetch Fetcher[K, V], opts ...KeyOption) (Resource[V], error)

	// Peek returns the current snapshot for key without subscribing.
	// The second result is false when the key has no active entry.
	Peek(key K) (Snapshot[V], bool)

	// Refresh forces an immediate out-of-band refetch of key, bypassing
	// the deduping window (a fetch already in flight is joined, not
	// duplicated). On success the error state and retry counter reset.
	// Returns ErrUnknownKey when nothing subscribes to key.
	Refresh(ctx context.Context, key K) (V, error)

	// Mutate optimistically overwrites the cached value for key without
	// fetching. Clears the error state and notifies subscribers.
	// Returns false when the key has no active entry.
	Mutate(key K, v V) bool

	// NotifyFocus signals that the application regained focus. Active
	// keys revalidate (deduped) only if Options.RevalidateOnFocus is set.
	NotifyFocus()

	// NotifyReconnect signals that network connectivity was restored.
	// Active keys revalidate (deduped) only if
	// Options.RevalidateOnReconnect is set.
	NotifyReconnect()

	// Len returns the number of active keys across all shards.
	Len() int

	// Close stops every refresh loop and waits for them to exit.
	// In-flight fetches complete; they are not cancelled.
	Close() error
}

// Resource is one subscriber's handle on a key.
type Resource[V any] interface {
	// Snapshot returns the current state. Consumers read a copy and
	// never observe partial updates.
	Snapshot() Snapshot[V]

	// Updates yields a signal whenever the resource's state changes.
	// Signals are coalesced (capacity 1): read Snapshot after each one.
	Updates() <-chan struct{}

	// Refresh forces an immediate refetch, same as Engine.Refresh.
	Refresh(ctx context.Context) (V, error)

	// Mutate optimistically overwrites the cached value, same as
	// Engine.Mutate.
	Mutate(v V)

	// Close drops this subscription. The key's entry and refresh loop
	// are torn down with the last subscriber; a fetch already in flight
	// still completes and publishes to any remaining handles.
	Close()
}
