package capture

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/uiproof/capture/internal/browser"
)

// Viewport is the rendered page size in CSS pixels, applied before
// navigation.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Scenario is an ordered capture sequence against a single page.
type Scenario struct {
	Name     string   `yaml:"name" json:"name"`
	URL      string   `yaml:"url" json:"url"`
	Viewport Viewport `yaml:"viewport" json:"viewport"`
	OutDir   string   `yaml:"out_dir" json:"out_dir"`
	Steps    []Step   `yaml:"steps" json:"steps"`
}

// Step is one scenario action. Exactly one action field must be set;
// TimeoutMs only qualifies WaitFor.
type Step struct {
	// WaitFor blocks until the selector matches an element, or fails after
	// TimeoutMs (default 30000).
	WaitFor   string `yaml:"wait_for,omitempty" json:"wait_for,omitempty"`
	TimeoutMs int64  `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`

	// SleepMs pauses the sequence for a fixed settling duration.
	SleepMs int64 `yaml:"sleep_ms,omitempty" json:"sleep_ms,omitempty"`

	// Screenshot captures the viewport as PNG to this file under OutDir.
	Screenshot string `yaml:"screenshot,omitempty" json:"screenshot,omitempty"`

	// Eval runs a JS function in the page. A thrown exception fails the step.
	Eval string `yaml:"eval,omitempty" json:"eval,omitempty"`

	// KeyDown / KeyUp press and release a key by its DOM name ("ArrowUp").
	KeyDown string `yaml:"key_down,omitempty" json:"key_down,omitempty"`
	KeyUp   string `yaml:"key_up,omitempty" json:"key_up,omitempty"`

	// Click left-clicks the first element matching the selector.
	Click string `yaml:"click,omitempty" json:"click,omitempty"`

	// PDF prints the page to this file under OutDir.
	PDF string `yaml:"pdf,omitempty" json:"pdf,omitempty"`

	// DOM writes a sanitised Markdown digest of the page to this file
	// under OutDir, so reviewers can diff what the page said, not just how
	// it looked.
	DOM string `yaml:"dom,omitempty" json:"dom,omitempty"`
}

// Step kinds, as reported in events and logs.
const (
	StepWaitFor    = "wait_for"
	StepSleep      = "sleep"
	StepScreenshot = "screenshot"
	StepEval       = "eval"
	StepKeyDown    = "key_down"
	StepKeyUp      = "key_up"
	StepClick      = "click"
	StepPDF        = "pdf"
	StepDOM        = "dom"
)

// Kind returns the step's action name, or "" when no action is set.
func (s *Step) Kind() string {
	switch {
	case s.WaitFor != "":
		return StepWaitFor
	case s.SleepMs > 0:
		return StepSleep
	case s.Screenshot != "":
		return StepScreenshot
	case s.Eval != "":
		return StepEval
	case s.KeyDown != "":
		return StepKeyDown
	case s.KeyUp != "":
		return StepKeyUp
	case s.Click != "":
		return StepClick
	case s.PDF != "":
		return StepPDF
	case s.DOM != "":
		return StepDOM
	}
	return ""
}

// Timeout returns the wait deadline for a wait_for step.
func (s *Step) Timeout() time.Duration {
	if s.TimeoutMs > 0 {
		return time.Duration(s.TimeoutMs) * time.Millisecond
	}
	return 30 * time.Second
}

// Sleep returns the pause duration for a sleep step.
func (s *Step) Sleep() time.Duration {
	return time.Duration(s.SleepMs) * time.Millisecond
}

func (s *Step) validate() error {
	actions := 0
	if s.WaitFor != "" {
		actions++
	}
	if s.SleepMs > 0 {
		actions++
	}
	if s.Screenshot != "" {
		actions++
	}
	if s.Eval != "" {
		actions++
	}
	if s.KeyDown != "" {
		actions++
	}
	if s.KeyUp != "" {
		actions++
	}
	if s.Click != "" {
		actions++
	}
	if s.PDF != "" {
		actions++
	}
	if s.DOM != "" {
		actions++
	}
	if actions == 0 {
		return fmt.Errorf("no action set")
	}
	if actions > 1 {
		return fmt.Errorf("more than one action set")
	}
	if s.TimeoutMs > 0 && s.WaitFor == "" {
		return fmt.Errorf("timeout_ms without wait_for")
	}
	// Resolve key names now so a typo fails at load time, not mid-run.
	if s.KeyDown != "" {
		if _, err := browser.KeyFromName(s.KeyDown); err != nil {
			return err
		}
	}
	if s.KeyUp != "" {
		if _, err := browser.KeyFromName(s.KeyUp); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the scenario is runnable: named, targeted at a URL, and
// every step well-formed.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("capture: scenario has no name")
	}
	if sc.URL == "" {
		return fmt.Errorf("capture: scenario %s: no url", sc.Name)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("capture: scenario %s: no steps", sc.Name)
	}
	for i := range sc.Steps {
		if err := sc.Steps[i].validate(); err != nil {
			return fmt.Errorf("capture: scenario %s: step %d: %w", sc.Name, i+1, err)
		}
	}
	return nil
}

func (sc *Scenario) applyDefaults() {
	if sc.OutDir == "" {
		sc.OutDir = "verification"
	}
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("capture: parse scenario %s: %w", path, err)
	}

	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}
