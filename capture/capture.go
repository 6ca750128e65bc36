// Package capture drives a headless Chromium through declarative scenarios
// and writes the resulting artifacts: screenshots, PDF prints, and DOM
// digests. The built-in arcade scenario is the reason the package exists;
// everything else generalises it.
//
// capture captures, it does not judge. Whether an artifact proves anything
// is the proof package's business.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/uiproof/capture/internal/browser"
)

// StepEvent reports one executed step to observers.
type StepEvent struct {
	RunID   string
	Seq     int
	Step    string
	Detail  string
	Err     string
	Elapsed time.Duration
}

// Observer receives step-level progress during a run.
type Observer interface {
	OnStep(ev StepEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev StepEvent)

// OnStep calls f(ev).
func (f ObserverFunc) OnStep(ev StepEvent) { f(ev) }

// Runner owns one browser and executes scenarios against it. Create with
// New, then either RunOnce for the one-shot path or Start/Run/Close for
// callers managing the lifecycle themselves.
type Runner struct {
	cfg       *Config
	mgr       *browser.Manager
	logger    *slog.Logger
	observers []Observer
}

// New creates a Runner from configuration. A nil logger falls back to
// slog.Default().
func New(cfg *Config, logger *slog.Logger, observers ...Observer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	level := browser.LevelPlain
	switch cfg.Browser.Stealth {
	case "stealth":
		level = browser.LevelStealth
	case "headful":
		level = browser.LevelHeadful
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          level,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		Logger:           logger,
	})

	return &Runner{
		cfg:       cfg,
		mgr:       mgr,
		logger:    logger,
		observers: observers,
	}
}

// EnableRecycling turns on the browser recycle loop. Must be called before
// Start. Only monitor mode wants this; one-shot runs keep the single-launch
// guarantee.
func (r *Runner) EnableRecycling() {
	r.mgr = browser.NewManager(browser.Config{
		RemoteURL:        r.cfg.Browser.Remote,
		MemoryLimit:      r.cfg.Browser.MemoryLimit,
		RecycleInterval:  r.cfg.Browser.RecycleInterval,
		ResourceBlocking: r.cfg.Browser.ResourceBlocking,
		Stealth:          r.mgr.Stealth(),
		Monitor:          true,
		XvfbDisplay:      r.cfg.Browser.XvfbDisplay,
		Logger:           r.logger,
	})
}

// Start launches the browser.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.mgr.Start(ctx); err != nil {
		return fmt.Errorf("capture: start browser: %w", err)
	}
	return nil
}

// Close shuts the browser down. Idempotent.
func (r *Runner) Close() error {
	return r.mgr.Close()
}

// RunOnce launches the browser, runs one scenario, and closes the browser
// on every exit path. The scenario error, if any, surfaces after cleanup;
// a close failure is logged, never allowed to mask it.
func (r *Runner) RunOnce(ctx context.Context, sc Scenario, opts ...RunOption) (*Result, error) {
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			r.logger.Warn("capture: close browser", "error", cerr)
		}
	}()

	return r.Run(ctx, sc, opts...)
}

func (r *Runner) observe(ev StepEvent) {
	for _, o := range r.observers {
		o.OnStep(ev)
	}
}
