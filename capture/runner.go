package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod/lib/input"

	"github.com/hazyhaar/uiproof/capture/internal/browser"
	"github.com/hazyhaar/uiproof/proof"
	"github.com/hazyhaar/uiproof/runid"
)

// Artifact kinds.
const (
	ArtifactPNG = "png"
	ArtifactPDF = "pdf"
	ArtifactDOM = "dom"
)

// Artifact is one file written by a run.
type Artifact struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Pages  int    `json:"pages,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	RunID      string     `json:"run_id"`
	Scenario   string     `json:"scenario"`
	URL        string     `json:"url"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Artifacts  []Artifact `json:"artifacts"`
	Err        string     `json:"error,omitempty"`
}

type runOptions struct {
	runID string
}

// RunOption customises a single Run call.
type RunOption func(*runOptions)

// WithRunID presets the run identifier, for callers that insert the history
// row before the run starts.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// RunFunc executes one scenario. The report server and the MCP tools accept
// a RunFunc instead of a *Runner so the caller decides what wraps a run —
// plain execution, or execution plus history recording.
type RunFunc func(ctx context.Context, sc Scenario) (*Result, error)

// Run executes one scenario in a new tab of the already-started browser.
// Steps run strictly in order; the first failure aborts the remainder. The
// tab is closed and any still-held keys are released on every exit path,
// and the step error is returned untouched by cleanup outcomes.
func (r *Runner) Run(ctx context.Context, sc Scenario, opts ...RunOption) (*Result, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = runid.New()
	}

	res := &Result{RunID: o.runID, Scenario: sc.Name, URL: sc.URL, StartedAt: time.Now()}

	fail := func(err error) (*Result, error) {
		res.Err = err.Error()
		res.FinishedAt = time.Now()
		return res, err
	}

	if err := sc.Validate(); err != nil {
		return fail(err)
	}

	tab, err := browser.OpenTab(ctx, r.mgr, sc.URL, sc.Viewport.Width, sc.Viewport.Height)
	if err != nil {
		return fail(fmt.Errorf("capture: open %s: %w", sc.URL, err))
	}

	held := make(map[input.Key]string)
	defer func() {
		for k, name := range held {
			if kerr := tab.KeyUp(k); kerr != nil {
				r.logger.Warn("capture: release held key", "key", name, "error", kerr)
			}
		}
		if cerr := tab.Close(); cerr != nil {
			r.logger.Warn("capture: close tab", "error", cerr)
		}
	}()

	for i := range sc.Steps {
		step := &sc.Steps[i]
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("capture: step %d (%s): %w", i+1, step.Kind(), err))
		}

		start := time.Now()
		detail, art, err := r.execStep(ctx, tab, sc, step, held)

		ev := StepEvent{RunID: res.RunID, Seq: i, Step: step.Kind(), Detail: detail, Elapsed: time.Since(start)}
		if err != nil {
			ev.Err = err.Error()
		}
		r.observe(ev)

		if err != nil {
			return fail(fmt.Errorf("capture: step %d (%s): %w", i+1, step.Kind(), err))
		}
		if art != nil {
			res.Artifacts = append(res.Artifacts, *art)
		}
		r.logger.Debug("capture: step done",
			"run", res.RunID, "seq", i, "step", step.Kind(), "elapsed", time.Since(start))
	}

	res.FinishedAt = time.Now()
	r.logger.Info("capture: scenario complete",
		"run", res.RunID, "scenario", sc.Name,
		"artifacts", len(res.Artifacts), "elapsed", res.FinishedAt.Sub(res.StartedAt))
	return res, nil
}

func (r *Runner) execStep(ctx context.Context, tab *browser.Tab, sc Scenario, step *Step, held map[input.Key]string) (string, *Artifact, error) {
	switch step.Kind() {
	case StepWaitFor:
		return step.WaitFor, nil, tab.WaitElement(ctx, step.WaitFor, step.Timeout())

	case StepSleep:
		select {
		case <-time.After(step.Sleep()):
			return step.Sleep().String(), nil, nil
		case <-ctx.Done():
			return step.Sleep().String(), nil, ctx.Err()
		}

	case StepScreenshot:
		data, err := tab.Screenshot(ctx)
		if err != nil {
			return step.Screenshot, nil, err
		}
		path := filepath.Join(sc.OutDir, step.Screenshot)
		if err := writeArtifact(path, data); err != nil {
			return path, nil, err
		}
		rep, err := proof.VerifyPNG(path)
		if err != nil {
			return path, nil, fmt.Errorf("verify %s: %w", path, err)
		}
		return path, &Artifact{Kind: ArtifactPNG, Path: path, Bytes: rep.Bytes, Width: rep.Width, Height: rep.Height}, nil

	case StepEval:
		val, err := tab.Eval(ctx, step.Eval)
		if err != nil {
			return "", nil, err
		}
		return truncate(val.Value.String(), 200), nil, nil

	case StepKeyDown:
		k, err := browser.KeyFromName(step.KeyDown)
		if err != nil {
			return step.KeyDown, nil, err
		}
		if err := tab.KeyDown(k); err != nil {
			return step.KeyDown, nil, err
		}
		held[k] = step.KeyDown
		return step.KeyDown, nil, nil

	case StepKeyUp:
		k, err := browser.KeyFromName(step.KeyUp)
		if err != nil {
			return step.KeyUp, nil, err
		}
		if err := tab.KeyUp(k); err != nil {
			return step.KeyUp, nil, err
		}
		delete(held, k)
		return step.KeyUp, nil, nil

	case StepClick:
		return step.Click, nil, tab.Click(ctx, step.Click)

	case StepPDF:
		data, err := tab.PDF(ctx)
		if err != nil {
			return step.PDF, nil, err
		}
		path := filepath.Join(sc.OutDir, step.PDF)
		if err := writeArtifact(path, data); err != nil {
			return path, nil, err
		}
		rep, err := proof.VerifyPDF(path)
		if err != nil {
			return path, nil, fmt.Errorf("verify %s: %w", path, err)
		}
		return path, &Artifact{Kind: ArtifactPDF, Path: path, Bytes: rep.Bytes, Pages: rep.Pages}, nil

	case StepDOM:
		html, err := tab.HTML(ctx)
		if err != nil {
			return step.DOM, nil, err
		}
		digest, err := proof.DigestDOM(string(html), sc.URL)
		if err != nil {
			return step.DOM, nil, err
		}
		path := filepath.Join(sc.OutDir, step.DOM)
		if err := writeArtifact(path, []byte(digest)); err != nil {
			return path, nil, err
		}
		return path, &Artifact{Kind: ArtifactDOM, Path: path, Bytes: int64(len(digest))}, nil
	}

	return "", nil, fmt.Errorf("no action set")
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
