package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/uiproof/capture"
)

func scenarios(names ...string) []capture.Scenario {
	out := make([]capture.Scenario, 0, len(names))
	for _, n := range names {
		out = append(out, capture.Scenario{Name: n, URL: "http://localhost:8080"})
	}
	return out
}

func TestRun_ImmediateSweep(t *testing.T) {
	// WHAT: All scenarios run once at startup, before the first tick.
	// WHY: A monitor that stays silent for a full interval after boot hides
	// an already-broken page.
	var calls atomic.Int32
	run := func(_ context.Context, _ capture.Scenario) (*capture.Result, error) {
		calls.Add(1)
		return &capture.Result{}, nil
	}
	m := New(scenarios("front", "side"), run, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
	if s := m.Stats(); s.Runs != 2 || s.Failures != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRun_IntervalSweeps(t *testing.T) {
	// WHAT: Sweeps repeat at the configured interval.
	var calls atomic.Int32
	run := func(_ context.Context, _ capture.Scenario) (*capture.Result, error) {
		calls.Add(1)
		return &capture.Result{}, nil
	}
	m := New(scenarios("arcade"), run, Options{Interval: 30 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()
	if got := calls.Load(); got < 3 {
		t.Fatalf("calls = %d, want >= 3 over several intervals", got)
	}
}

func TestRun_RetryAfterFailure(t *testing.T) {
	// WHAT: A failed scenario is retried once after the debounce window,
	// well before the next full sweep.
	// WHY: One flaky render should clear itself instead of sitting red for
	// a whole interval.
	var calls atomic.Int32
	run := func(_ context.Context, _ capture.Scenario) (*capture.Result, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("first render flaked")
		}
		return &capture.Result{}, nil
	}
	m := New(scenarios("arcade"), run, Options{
		Interval: time.Hour,
		Debounce: 30 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2 (sweep + retry)", got)
	}
	s := m.Stats()
	if s.Retries != 1 || s.Failures != 1 {
		t.Errorf("stats = %+v, want 1 retry / 1 failure", s)
	}
	if n := m.Consecutive("arcade"); n != 0 {
		t.Errorf("consecutive = %d, want 0 after passing retry", n)
	}
}

func TestRun_ConsecutiveFailures(t *testing.T) {
	// WHAT: Repeated failures accumulate per scenario until a pass clears
	// them.
	run := func(_ context.Context, _ capture.Scenario) (*capture.Result, error) {
		return nil, errors.New("page down")
	}
	m := New(scenarios("arcade"), run, Options{Interval: 25 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()

	if n := m.Consecutive("arcade"); n < 3 {
		t.Errorf("consecutive = %d, want >= 3", n)
	}
	s := m.Stats()
	if s.Failures != s.Runs || s.Runs < 3 {
		t.Errorf("stats = %+v, want every run failed", s)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	// WHAT: Cancelling the context ends the loop.
	run := func(_ context.Context, _ capture.Scenario) (*capture.Result, error) {
		return &capture.Result{}, nil
	}
	m := New(scenarios("arcade"), run, Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
