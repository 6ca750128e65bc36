// Package monitor re-runs capture scenarios on a fixed interval and keeps
// failure counters. A scenario that fails a sweep is retried once after a
// short debounce window, so a flaky render is separated from a dead page
// before anyone reads the history.
//
// Typical usage:
//
//	m := monitor.New(scenarios, run, monitor.Options{Interval: 5 * time.Minute})
//	go m.Run(ctx)
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/uiproof/capture"
)

// Options tunes the monitor behaviour.
type Options struct {
	// Interval is the time between full sweeps. Default: 5m.
	Interval time.Duration
	// Debounce is the quiet period before failed scenarios are retried.
	// 0 disables the quick retry; failures wait for the next sweep.
	Debounce time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Minute
	}
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Monitor drives scenarios through a RunFunc on a schedule. It is safe for
// concurrent use; runs themselves happen on the Run goroutine, one at a time.
type Monitor struct {
	scenarios []capture.Scenario
	run       capture.RunFunc
	opts      Options

	runs     atomic.Int64
	failures atomic.Int64
	retries  atomic.Int64
	runNs    atomic.Int64

	mu          sync.Mutex
	consecutive map[string]int
}

// Stats are point-in-time counters.
type Stats struct {
	Runs       int64         `json:"runs"`
	Failures   int64         `json:"failures"`
	Retries    int64         `json:"retries"`
	AvgRunTime time.Duration `json:"avg_run_time"`
}

// New creates a Monitor. Call Run to start the loop.
func New(scenarios []capture.Scenario, run capture.RunFunc, opts Options) *Monitor {
	opts.defaults()
	return &Monitor{
		scenarios:   scenarios,
		run:         run,
		opts:        opts,
		consecutive: make(map[string]int),
	}
}

// Stats returns the current counters.
func (m *Monitor) Stats() Stats {
	s := Stats{
		Runs:     m.runs.Load(),
		Failures: m.failures.Load(),
		Retries:  m.retries.Load(),
	}
	if s.Runs > 0 {
		s.AvgRunTime = time.Duration(m.runNs.Load() / s.Runs)
	}
	return s
}

// Consecutive returns how many runs in a row the named scenario has failed,
// retries included. A passing run resets the count.
func (m *Monitor) Consecutive(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutive[name]
}

// Run blocks until ctx is cancelled, sweeping all scenarios immediately and
// then at every interval. Failed scenarios get one quick retry after the
// debounce window; a retry that fails again waits for the next full sweep.
func (m *Monitor) Run(ctx context.Context) {
	log := m.opts.Logger

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	var retryTimer *time.Timer
	var retryCh <-chan time.Time
	var retryQueue []capture.Scenario

	schedule := func(failed []capture.Scenario) {
		if len(failed) == 0 || m.opts.Debounce <= 0 {
			return
		}
		retryQueue = failed
		if retryTimer != nil {
			retryTimer.Stop()
		}
		retryTimer = time.NewTimer(m.opts.Debounce)
		retryCh = retryTimer.C
		log.Debug("monitor: retry scheduled", "scenarios", len(failed), "after", m.opts.Debounce)
	}

	log.Info("monitor: started",
		"interval", m.opts.Interval,
		"debounce", m.opts.Debounce,
		"scenarios", len(m.scenarios))

	schedule(m.sweep(ctx, m.scenarios))

	for {
		select {
		case <-ctx.Done():
			if retryTimer != nil {
				retryTimer.Stop()
			}
			log.Info("monitor: stopped")
			return

		case <-ticker.C:
			retryQueue = nil
			schedule(m.sweep(ctx, m.scenarios))

		case <-retryCh:
			retryCh = nil
			queue := retryQueue
			retryQueue = nil
			m.retries.Add(int64(len(queue)))
			m.sweep(ctx, queue)
		}
	}
}

// sweep runs each scenario once and returns the ones that failed.
func (m *Monitor) sweep(ctx context.Context, scs []capture.Scenario) []capture.Scenario {
	log := m.opts.Logger
	var failed []capture.Scenario

	for _, sc := range scs {
		if ctx.Err() != nil {
			return failed
		}
		start := time.Now()
		_, err := m.run(ctx, sc)
		elapsed := time.Since(start)

		m.runs.Add(1)
		m.runNs.Add(int64(elapsed))

		if err != nil {
			m.failures.Add(1)
			n := m.bumpFailure(sc.Name)
			log.Error("monitor: scenario failed",
				"scenario", sc.Name,
				"consecutive", n,
				"duration", elapsed,
				"error", err)
			failed = append(failed, sc)
			continue
		}
		m.clearFailure(sc.Name)
		log.Info("monitor: scenario ok", "scenario", sc.Name, "duration", elapsed)
	}
	return failed
}

func (m *Monitor) bumpFailure(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutive[name]++
	return m.consecutive[name]
}

func (m *Monitor) clearFailure(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.consecutive, name)
}
