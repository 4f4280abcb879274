// Package swr provides a generic stale-while-revalidate engine: per
// resource key it runs a background refresh loop, coalesces concurrent
// fetches, retries failures with pluggable backoff, and keeps serving
// the last successful value while a revalidation is in flight or has
// failed, so a consumer never has to render an empty view after the
// first success.
//
// Design
//
//   - Concurrency: the key registry is split into shards, each protected
//     by a mutex. The default shard count is chosen by a heuristic
//     (ReasonableShardCount) and is a power of two. Per-key state lives
//     in an entry with its own lock and a dedicated refresh goroutine.
//
//   - Deduplication: requests for the same key within DedupingInterval
//     collapse into one underlying fetch via an internal singleflight
//     group. A request arriving while a fetch is in flight joins it;
//     a request arriving shortly after one completed is served from the
//     cached state.
//
//   - Retry: a failed fetch schedules a retry through a pluggable
//     retry.Strategy (capped exponential by default: 1s, 2s, 4s, …,
//     16s). The attempt counter resets on any success; once
//     ErrorRetryCount consecutive retries are spent, automatic retry
//     suspends until the next periodic refresh or a manual Refresh.
//
//   - Anti-flicker: a failed revalidation records the error but keeps
//     the previous data, unless DropStaleData asks for the opposite.
//     Snapshot exposes data, error, and the validating flag together.
//
//   - Triggers: NotifyFocus and NotifyReconnect revalidate every active
//     key, gated by RevalidateOnFocus / RevalidateOnReconnect. Trigger
//     kicks go through the deduping window like any other request.
//
//   - Observability: Options.Observer receives attempt/success/error/
//     slow-loading/dedup signals. By default NoopObserver is used; plug
//     the observe/prom adapter to export Prometheus metrics or
//     observe/logsink for structured logs.
//
// Basic usage
//
//	eng := swr.New[string, Quote](swr.Options[string, Quote]{
//	    RefreshInterval:  5 * time.Second,
//	    DedupingInterval: 2 * time.Second,
//	})
//	defer eng.Close()
//
//	res, err := eng.Subscribe("prices", fetchQuote)
//	if err != nil { /* no fetcher, or engine closed */ }
//	defer res.Close()
//
//	for range res.Updates() {
//	    snap := res.Snapshot()
//	    if snap.HasData {
//	        render(snap.Data, snap.Err) // stale data + error can coexist
//	    }
//	}
//
// Manual refresh and optimistic updates
//
//	v, err := res.Refresh(ctx) // bypasses the deduping window
//	res.Mutate(localGuess)     // overwrite without fetching
//
// Per-key overrides
//
//	res, _ := eng.Subscribe("status", fetchStatus,
//	    swr.WithRefreshInterval(time.Second),
//	    swr.WithRetryBudget(3),
//	)
//
// Thread-safety
//
// All methods on Engine and Resource are safe for concurrent use.
// Snapshots are copies; consumers never observe partial updates.
package swr
