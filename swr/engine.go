package swr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbdash/revalid/internal/singleflight"
	"github.com/arbdash/revalid/internal/util"
	"github.com/arbdash/revalid/retry/expo"
)

var (
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("swr: engine is closed")
	// ErrNoFetcher is returned by Subscribe when neither the call nor
	// Options provides a fetch function.
	ErrNoFetcher = errors.New("swr: no fetcher provided")
	// ErrUnknownKey is returned by engine-level Refresh for keys with
	// no active subscription.
	ErrUnknownKey = errors.New("swr: key has no active subscription")
)

// engine is a sharded registry of per-key revalidation entries.
// All methods are safe for concurrent use by multiple goroutines.
type engine[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]

	// singleflight group coalescing concurrent fetches per key.
	sf singleflight.Group[K, V]

	// running entry loops; Close waits on this.
	wg sync.WaitGroup
}

// New constructs an engine with the provided Options.
// Defaults:
//   - nil Observer          -> NoopObserver
//   - nil Retry             -> capped exponential (1s base, 16s cap)
//   - DedupingInterval <= 0 -> DefaultDedupingInterval
//   - ErrorRetryCount == 0  -> DefaultErrorRetryCount
//   - Shards <= 0           -> auto, rounded up to the next power of two
func New[K comparable, V any](opt Options[K, V]) Engine[K, V] {
	if opt.Observer == nil {
		opt.Observer = NoopObserver[K]{}
	}
	if opt.Retry == nil {
		opt.Retry = expo.New(DefaultRetryBase, DefaultRetryCap)
	}
	if opt.DedupingInterval <= 0 {
		opt.DedupingInterval = DefaultDedupingInterval
	}
	if opt.ErrorRetryCount == 0 {
		opt.ErrorRetryCount = DefaultErrorRetryCount
	}

	// number of shards -> power of two
	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	e := &engine[K, V]{
		hash: util.Fnv64a[K], // fast non-crypto hash for sharding
		opt:  opt,
	}
	e.shards = make([]*shard[K, V], sh)
	for i := range e.shards {
		e.shards[i] = newShard(e)
	}
	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return e
}

// ---- Engine[K,V] implementation ----

// Subscribe attaches a subscriber to key, creating the entry (and its
// refresh loop) on first subscription.
func (e *engine[K, V]) Subscribe(key K, fetch Fetcher[K, V], opts ...KeyOption) (Resource[V], error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if fetch == nil {
		fetch = e.opt.Fetcher
	}
	if fetch == nil {
		return nil, ErrNoFetcher
	}

	cfg := e.baseKeyConfig()
	for _, o := range opts {
		o(&cfg)
	}

	r := e.getShard(key).subscribe(key, fetch, cfg)
	e.opt.Observer.ActiveKeys(e.Len())
	return r, nil
}

// Peek returns the current snapshot for key without subscribing.
func (e *engine[K, V]) Peek(key K) (Snapshot[V], bool) {
	if e.closed.Load() {
		var zero Snapshot[V]
		return zero, false
	}
	return e.getShard(key).peek(key)
}

// Refresh forces an immediate refetch of key, bypassing the deduping
// window. A fetch already in flight is joined.
func (e *engine[K, V]) Refresh(ctx context.Context, key K) (V, error) {
	if e.closed.Load() {
		var zero V
		return zero, ErrClosed
	}
	ent, ok := e.getShard(key).get(key)
	if !ok {
		var zero V
		return zero, ErrUnknownKey
	}
	return ent.revalidate(ctx, true)
}

// Mutate optimistically overwrites the cached value for key.
func (e *engine[K, V]) Mutate(key K, v V) bool {
	if e.closed.Load() {
		return false
	}
	ent, ok := e.getShard(key).get(key)
	if !ok {
		return false
	}
	ent.mutate(v)
	return true
}

// NotifyFocus revalidates all active keys if RevalidateOnFocus is set.
func (e *engine[K, V]) NotifyFocus() {
	if e.closed.Load() || !e.opt.RevalidateOnFocus {
		return
	}
	e.kickAll()
}

// NotifyReconnect revalidates all active keys if RevalidateOnReconnect is set.
func (e *engine[K, V]) NotifyReconnect() {
	if e.closed.Load() || !e.opt.RevalidateOnReconnect {
		return
	}
	e.kickAll()
}

// Len returns the number of active keys across all shards.
func (e *engine[K, V]) Len() int {
	total := 0
	for _, s := range e.shards {
		total += s.count()
	}
	return total
}

// Close marks the engine closed, stops every entry loop, and waits for
// them to exit. Fetches in flight complete; they are not cancelled.
func (e *engine[K, V]) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, s := range e.shards {
		s.stopAll()
	}
	e.wg.Wait()
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing the key.
func (e *engine[K, V]) getShard(k K) *shard[K, V] {
	return e.shards[util.ShardIndex(e.hash(k), len(e.shards))]
}

// now reads the configured clock, falling back to wall time.
func (e *engine[K, V]) now() time.Time {
	if e.opt.Clock != nil {
		return time.Unix(0, e.opt.Clock.NowUnixNano())
	}
	return time.Now()
}

// baseKeyConfig derives a per-entry schedule from the engine Options.
func (e *engine[K, V]) baseKeyConfig() keyConfig {
	return keyConfig{
		refreshInterval:  e.opt.RefreshInterval,
		dedupingInterval: e.opt.DedupingInterval,
		retryBudget:      e.opt.ErrorRetryCount,
		strategy:         e.opt.Retry,
		loadingTimeout:   e.opt.LoadingTimeout,
		dropStale:        e.opt.DropStaleData,
	}
}

// kickAll requests a (deduped) revalidation of every active key.
func (e *engine[K, V]) kickAll() {
	for _, s := range e.shards {
		s.kickAll()
	}
}
