package swr

import (
	"context"
	"sync"
	"time"
)

// entry is the per-key state and refresh loop owned by a shard.
// Subscribers hold resource handles onto it; the entry lives as long as
// at least one handle is open.
type entry[K comparable, V any] struct {
	key   K
	fetch Fetcher[K, V]
	cfg   keyConfig
	sh    *shard[K, V]

	stopc   chan struct{}
	kickc   chan struct{} // capacity 1; coalesced focus/reconnect kicks
	wakec   chan struct{} // capacity 1; schedule changed, recompute timers
	stopped bool          // guarded by sh.mu

	// ---- guarded by mu ----
	mu         sync.Mutex
	data       V
	hasData    bool
	err        error
	fetchedAt  time.Time // completion of the last successful fetch
	lastStart  time.Time // start of the most recent fetch (dedup window anchor)
	retryAt    time.Time // zero when no retry is scheduled
	validating bool
	attempts   int // consecutive failures since the last success
	subs       map[*resource[K, V]]struct{}
}

func newEntry[K comparable, V any](sh *shard[K, V], key K, fetch Fetcher[K, V], cfg keyConfig) *entry[K, V] {
	return &entry[K, V]{
		key:   key,
		fetch: fetch,
		cfg:   cfg,
		sh:    sh,
		stopc: make(chan struct{}),
		kickc: make(chan struct{}, 1),
		wakec: make(chan struct{}, 1),
		subs:  make(map[*resource[K, V]]struct{}),
	}
}

// run is the entry's refresh loop: an initial fetch, then wake-ups for
// periodic refresh and scheduled retries until the last subscriber
// leaves. A retry due at the same instant as the periodic refresh wins
// the wake-up; the periodic schedule restarts from whichever fetch
// actually ran.
func (e *entry[K, V]) run() {
	defer e.sh.eng.wg.Done()

	// Initial fetch. Subscribers that race in before it completes all
	// observe the same flight through the deduplication group.
	e.revalidate(context.Background(), true)

	for {
		d, ok := e.nextWake()
		if ok && d <= 0 {
			// A deadline is already due. Scheduled refresh/retry
			// bypasses the deduping window: the window throttles
			// requests, not the schedule itself.
			e.revalidate(context.Background(), true)
			continue
		}
		var timer *time.Timer
		var timerC <-chan time.Time
		if ok {
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case <-e.stopc:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.kickc:
			if timer != nil {
				timer.Stop()
			}
			// Focus/reconnect trigger: immediate but still deduped.
			e.revalidate(context.Background(), false)
		case <-e.wakec:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
			// Loop back and re-check: the deadline may have been
			// cancelled by a Mutate or satisfied by an out-of-band
			// Refresh while the timer was armed.
		}
	}
}

// nextWake returns the delay until the next scheduled fetch, or
// ok=false when nothing is scheduled. The earliest deadline wins;
// comparisons are strict, so on a tie the pending retry fires and the
// periodic refresh is recomputed from it.
func (e *entry[K, V]) nextWake() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.retryAt
	if e.cfg.refreshInterval > 0 && !e.lastStart.IsZero() {
		ref := e.lastStart.Add(e.cfg.refreshInterval)
		if at.IsZero() || ref.Before(at) {
			at = ref
		}
	}
	if at.IsZero() {
		return 0, false
	}
	d := at.Sub(e.now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// revalidate runs (or joins) a fetch for the key. force bypasses the
// deduping window; an in-flight fetch is always joined rather than
// duplicated, regardless of force.
func (e *entry[K, V]) revalidate(ctx context.Context, force bool) (V, error) {
	if !force {
		if v, err, served := e.servedFromWindow(); served {
			return v, err
		}
	}

	eng := e.sh.eng
	v, err, joined := eng.sf.Do(ctx, e.key, func() (V, error) {
		// Re-check after winning leadership: a flight that completed
		// between the window check and here re-anchored the window.
		if !force {
			if v, err, served := e.servedFromWindow(); served {
				return v, err
			}
		}
		return e.doFetch(ctx)
	})
	if joined {
		e.sh.dedups.Add(1)
		eng.opt.Observer.Dedup(e.key)
	}
	return v, err
}

// servedFromWindow reports whether the deduping window suppresses a new
// fetch, returning the cached state if so. An in-flight fetch is never
// "served" here — the caller joins it through the flight group instead.
func (e *entry[K, V]) servedFromWindow() (V, error, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V
	if e.validating || e.lastStart.IsZero() {
		return zero, nil, false
	}
	if e.now().Sub(e.lastStart) >= e.cfg.dedupingInterval {
		return zero, nil, false
	}
	return e.data, e.err, true
}

// doFetch is the flight leader body: at most one runs per key at a time.
func (e *entry[K, V]) doFetch(ctx context.Context) (V, error) {
	obs := e.sh.eng.opt.Observer
	start := e.now()

	e.mu.Lock()
	e.lastStart = start
	e.retryAt = time.Time{}
	e.validating = true
	e.mu.Unlock()
	e.notify()

	e.sh.fetches.Add(1)
	obs.FetchAttempt(e.key, start)

	var slow *time.Timer
	if d := e.cfg.loadingTimeout; d > 0 {
		slow = time.AfterFunc(d, func() { obs.SlowLoading(e.key, d, e.now()) })
	}

	v, err := e.fetch(ctx, e.key)
	if slow != nil {
		slow.Stop()
	}
	done := e.now()

	e.mu.Lock()
	e.validating = false
	if err != nil {
		e.err = err
		if e.cfg.retryBudget > 0 && e.attempts < e.cfg.retryBudget {
			e.retryAt = done.Add(e.cfg.strategy.Delay(e.attempts))
		}
		e.attempts++
		attempt := e.attempts
		if e.cfg.dropStale {
			var zero V
			e.data = zero
			e.hasData = false
		}
		e.mu.Unlock()

		e.sh.errors.Add(1)
		obs.FetchError(e.key, err, attempt, done)
		e.notify()
		e.wake()
		var zero V
		return zero, err
	}

	e.data, e.hasData = v, true
	e.err = nil
	e.attempts = 0
	e.fetchedAt = done
	e.mu.Unlock()

	obs.FetchSuccess(e.key, done.Sub(start), done)
	e.notify()
	e.wake()
	return v, nil
}

// mutate is an optimistic local overwrite: no fetch runs and the
// deduping window is untouched, so the next scheduled revalidation
// still runs on time.
func (e *entry[K, V]) mutate(v V) {
	e.mu.Lock()
	e.data, e.hasData = v, true
	e.err = nil
	e.attempts = 0
	e.retryAt = time.Time{}
	e.mu.Unlock()
	e.notify()
	e.wake()
}

// snapshot returns a copy of the current state.
func (e *entry[K, V]) snapshot() Snapshot[V] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot[V]{
		Data:       e.data,
		HasData:    e.hasData,
		Err:        e.err,
		Validating: e.validating,
		FetchedAt:  e.fetchedAt,
	}
}

// attach registers a subscriber handle.
func (e *entry[K, V]) attach(r *resource[K, V]) {
	e.mu.Lock()
	e.subs[r] = struct{}{}
	e.mu.Unlock()
}

// detach removes a subscriber handle and reports whether it was the last.
func (e *entry[K, V]) detach(r *resource[K, V]) bool {
	e.mu.Lock()
	delete(e.subs, r)
	last := len(e.subs) == 0
	e.mu.Unlock()
	return last
}

// notify wakes subscribers without blocking: each handle has a buffered
// signal slot, so an unread signal coalesces with the next one.
func (e *entry[K, V]) notify() {
	e.mu.Lock()
	for r := range e.subs {
		select {
		case r.ch <- struct{}{}:
		default:
		}
	}
	e.mu.Unlock()
}

// wake nudges the loop to recompute its timers after a schedule change
// made outside the loop (out-of-band Refresh, Mutate).
func (e *entry[K, V]) wake() {
	select {
	case e.wakec <- struct{}{}:
	default:
	}
}

// kickAsync requests an immediate (deduped) revalidation from the loop.
func (e *entry[K, V]) kickAsync() {
	select {
	case e.kickc <- struct{}{}:
	default:
	}
}

func (e *entry[K, V]) now() time.Time { return e.sh.eng.now() }

// resource is one subscriber's handle on an entry.
type resource[K comparable, V any] struct {
	ent  *entry[K, V]
	ch   chan struct{}
	once sync.Once
}

func (r *resource[K, V]) Snapshot() Snapshot[V] { return r.ent.snapshot() }

func (r *resource[K, V]) Updates() <-chan struct{} { return r.ch }

func (r *resource[K, V]) Refresh(ctx context.Context) (V, error) {
	return r.ent.revalidate(ctx, true)
}

func (r *resource[K, V]) Mutate(v V) { r.ent.mutate(v) }

// Close drops this subscription; the last Close tears the entry down.
// Safe to call more than once.
func (r *resource[K, V]) Close() {
	r.once.Do(func() {
		eng := r.ent.sh.eng
		r.ent.sh.unsubscribe(r.ent, r)
		eng.opt.Observer.ActiveKeys(eng.Len())
	})
}
