package swr

import (
	"sync"

	"github.com/arbdash/revalid/internal/util"
)

// shard is an independent partition of the key registry with its own
// lock and key→entry map. Entries are reference-counted by their
// subscribers; a shard never evicts on its own.
type shard[K comparable, V any] struct {
	eng *engine[K, V]

	// ---- guarded by mu ----
	mu sync.Mutex
	m  map[K]*entry[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_       util.CacheLinePad
	fetches util.PaddedAtomicUint64
	errors  util.PaddedAtomicUint64
	dedups  util.PaddedAtomicUint64
}

func newShard[K comparable, V any](eng *engine[K, V]) *shard[K, V] {
	return &shard[K, V]{
		eng: eng,
		m:   make(map[K]*entry[K, V]),
	}
}

// subscribe attaches a new subscriber to key, creating the entry and
// starting its refresh loop on first subscription. The first
// subscriber's cfg fixes the entry's schedule.
func (s *shard[K, V]) subscribe(key K, fetch Fetcher[K, V], cfg keyConfig) *resource[K, V] {
	s.mu.Lock()
	ent, ok := s.m[key]
	if !ok {
		ent = newEntry(s, key, fetch, cfg)
		s.m[key] = ent
		s.eng.wg.Add(1)
		go ent.run()
	}
	r := &resource[K, V]{ent: ent, ch: make(chan struct{}, 1)}
	ent.attach(r)
	s.mu.Unlock()
	return r
}

// unsubscribe detaches r; the last subscriber tears the entry down.
func (s *shard[K, V]) unsubscribe(ent *entry[K, V], r *resource[K, V]) {
	s.mu.Lock()
	if ent.detach(r) {
		delete(s.m, ent.key)
		s.stopEntryLocked(ent)
	}
	s.mu.Unlock()
}

// get returns the active entry for key, if any.
func (s *shard[K, V]) get(key K) (*entry[K, V], bool) {
	s.mu.Lock()
	ent, ok := s.m[key]
	s.mu.Unlock()
	return ent, ok
}

// peek returns the snapshot for key without touching refcounts.
func (s *shard[K, V]) peek(key K) (Snapshot[V], bool) {
	ent, ok := s.get(key)
	if !ok {
		var zero Snapshot[V]
		return zero, false
	}
	return ent.snapshot(), true
}

// count returns the number of active keys in this shard.
func (s *shard[K, V]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// kickAll requests a revalidation of every entry in the shard.
// Kicks are delivered outside the lock; entry loops dedupe them.
func (s *shard[K, V]) kickAll() {
	s.mu.Lock()
	ents := make([]*entry[K, V], 0, len(s.m))
	for _, ent := range s.m {
		ents = append(ents, ent)
	}
	s.mu.Unlock()
	for _, ent := range ents {
		ent.kickAsync()
	}
}

// stopAll tears down every entry; used by Engine.Close.
func (s *shard[K, V]) stopAll() {
	s.mu.Lock()
	for _, ent := range s.m {
		s.stopEntryLocked(ent)
	}
	s.m = make(map[K]*entry[K, V])
	s.mu.Unlock()
}

// stopEntryLocked closes the entry's stop channel exactly once.
// ent.stopped is guarded by s.mu: unsubscribe and stopAll can race.
func (s *shard[K, V]) stopEntryLocked(ent *entry[K, V]) {
	if !ent.stopped {
		ent.stopped = true
		close(ent.stopc)
	}
}
