package swr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arbdash/revalid/retry/fixed"
)

// recordingObserver captures events for assertions without touching
// console output.
type recordingObserver struct {
	mu        sync.Mutex
	attempts  int
	successes int
	errs      []int // attempt numbers as reported
	slow      int
	dedups    int
	active    []int
}

func (o *recordingObserver) FetchAttempt(string, time.Time) {
	o.mu.Lock()
	o.attempts++
	o.mu.Unlock()
}
func (o *recordingObserver) FetchSuccess(string, time.Duration, time.Time) {
	o.mu.Lock()
	o.successes++
	o.mu.Unlock()
}
func (o *recordingObserver) FetchError(_ string, _ error, attempt int, _ time.Time) {
	o.mu.Lock()
	o.errs = append(o.errs, attempt)
	o.mu.Unlock()
}
func (o *recordingObserver) SlowLoading(string, time.Duration, time.Time) {
	o.mu.Lock()
	o.slow++
	o.mu.Unlock()
}
func (o *recordingObserver) Dedup(string) {
	o.mu.Lock()
	o.dedups++
	o.mu.Unlock()
}
func (o *recordingObserver) ActiveKeys(n int) {
	o.mu.Lock()
	o.active = append(o.active, n)
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() (attempts, successes, slow, dedups int, errs, active []int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts, o.successes, o.slow, o.dedups,
		append([]int(nil), o.errs...), append([]int(nil), o.active...)
}

// Failures are reported with consecutive attempt numbers; a success
// resets the numbering.
func TestObserver_ErrorAttemptNumbers(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	var calls atomic.Int64
	fetch := func(context.Context, string) (int, error) {
		calls.Add(1)
		return 0, errors.New("boom")
	}

	e := New[string, int](Options[string, int]{Observer: obs})
	t.Cleanup(func() { _ = e.Close() })

	res, err := e.Subscribe("k", fetch,
		WithRetryStrategy(fixed.New(5*time.Millisecond)),
		WithRetryBudget(2),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(res.Close)

	eventually(t, 2*time.Second, func() bool { return calls.Load() == 3 })

	attempts, successes, _, _, errs, active := obs.snapshot()
	if attempts != 3 || successes != 0 {
		t.Fatalf("want 3 attempts / 0 successes, got %d/%d", attempts, successes)
	}
	if len(errs) != 3 || errs[0] != 1 || errs[1] != 2 || errs[2] != 3 {
		t.Fatalf("attempt numbering off: %v", errs)
	}
	if len(active) == 0 || active[0] != 1 {
		t.Fatalf("ActiveKeys must report the subscribe: %v", active)
	}
}

// A fetch outlasting LoadingTimeout emits exactly one SlowLoading event.
func TestObserver_SlowLoading(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	fetch := func(context.Context, string) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	}

	e := New[string, int](Options[string, int]{
		Observer:       obs,
		LoadingTimeout: 5 * time.Millisecond,
	})
	t.Cleanup(func() { _ = e.Close() })

	res, err := e.Subscribe("slow", fetch)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(res.Close)

	eventually(t, 2*time.Second, func() bool { return res.Snapshot().HasData })

	_, successes, slow, _, _, _ := obs.snapshot()
	if successes != 1 || slow != 1 {
		t.Fatalf("want 1 success / 1 slow event, got %d/%d", successes, slow)
	}
}

// Requests that join an in-flight fetch are reported as dedups.
func TestObserver_Dedup(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	gate := make(chan struct{})
	var calls atomic.Int64
	fetch := func(context.Context, string) (int, error) {
		if calls.Add(1) > 1 {
			<-gate
		}
		return 1, nil
	}

	e := New[string, int](Options[string, int]{Observer: obs})
	t.Cleanup(func() { _ = e.Close() })

	res, err := e.Subscribe("k", fetch)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(res.Close)
	eventually(t, 2*time.Second, func() bool { return res.Snapshot().HasData })

	done := make(chan struct{})
	go func() {
		_, _ = res.Refresh(context.Background()) // leader, blocks on gate
		close(done)
	}()
	eventually(t, 2*time.Second, func() bool { return calls.Load() == 2 })

	joined := make(chan struct{})
	go func() {
		_, _ = res.Refresh(context.Background()) // joins the flight
		close(joined)
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate)
	<-done
	<-joined

	_, _, _, dedups, _, _ := obs.snapshot()
	if dedups != 1 {
		t.Fatalf("want 1 dedup, got %d", dedups)
	}
}
