package capture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStep_Kind(t *testing.T) {
	// WHAT: Each action field maps to its kind name.
	cases := []struct {
		step Step
		kind string
	}{
		{Step{WaitFor: "#game-canvas"}, StepWaitFor},
		{Step{SleepMs: 500}, StepSleep},
		{Step{Screenshot: "a.png"}, StepScreenshot},
		{Step{Eval: "() => 1"}, StepEval},
		{Step{KeyDown: "ArrowUp"}, StepKeyDown},
		{Step{KeyUp: "ArrowUp"}, StepKeyUp},
		{Step{Click: "#start"}, StepClick},
		{Step{PDF: "page.pdf"}, StepPDF},
		{Step{DOM: "page.md"}, StepDOM},
		{Step{}, ""},
	}
	for _, tc := range cases {
		if got := tc.step.Kind(); got != tc.kind {
			t.Errorf("Kind(%+v) = %q, want %q", tc.step, got, tc.kind)
		}
	}
}

func TestStep_Timeout(t *testing.T) {
	// WHAT: timeout_ms overrides the 30s wait default.
	s := Step{WaitFor: "#x"}
	if got := s.Timeout(); got != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", got)
	}
	s.TimeoutMs = 1500
	if got := s.Timeout(); got != 1500*time.Millisecond {
		t.Errorf("timeout = %v, want 1.5s", got)
	}
}

func TestScenario_Validate(t *testing.T) {
	// WHAT: Validation rejects unnamed, untargeted, empty and malformed
	// scenarios with errors naming the offending step.
	// WHY: Scenario files are hand-written; load-time errors beat mid-run
	// surprises with a browser already open.
	valid := func() Scenario {
		return Scenario{
			Name:  "t",
			URL:   "http://localhost:8080",
			Steps: []Step{{WaitFor: "#x"}},
		}
	}

	sc := valid()
	if err := sc.Validate(); err != nil {
		t.Fatalf("valid scenario rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Scenario)
		errPart string
	}{
		{"no name", func(sc *Scenario) { sc.Name = "" }, "no name"},
		{"no url", func(sc *Scenario) { sc.URL = "" }, "no url"},
		{"no steps", func(sc *Scenario) { sc.Steps = nil }, "no steps"},
		{"empty step", func(sc *Scenario) { sc.Steps = []Step{{}} }, "no action"},
		{"two actions", func(sc *Scenario) {
			sc.Steps = []Step{{WaitFor: "#x", Screenshot: "a.png"}}
		}, "more than one action"},
		{"timeout without wait", func(sc *Scenario) {
			sc.Steps = []Step{{SleepMs: 100, TimeoutMs: 500}}
		}, "timeout_ms without wait_for"},
		{"unknown key", func(sc *Scenario) {
			sc.Steps = []Step{{KeyDown: "WarpDrive"}}
		}, "unknown key"},
	}
	for _, tc := range cases {
		sc := valid()
		tc.mutate(&sc)
		err := sc.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.errPart) {
			t.Errorf("%s: error = %v, want mention of %q", tc.name, err, tc.errPart)
		}
	}
}

func TestScenario_Validate_StepNumbering(t *testing.T) {
	// WHAT: Step errors report 1-based positions.
	sc := Scenario{
		Name:  "t",
		URL:   "http://localhost:8080",
		Steps: []Step{{WaitFor: "#x"}, {}},
	}
	err := sc.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "step 2") {
		t.Errorf("error = %v, want step 2 named", err)
	}
}

func TestLoadScenario(t *testing.T) {
	// WHAT: A YAML scenario file loads with defaults applied.
	src := `name: arcade-local
url: http://localhost:8080
viewport:
  width: 1600
  height: 1200
steps:
  - wait_for: "#game-canvas"
    timeout_ms: 5000
  - sleep_ms: 2000
  - screenshot: front.png
  - key_down: ArrowUp
  - key_up: ArrowUp
`
	path := filepath.Join(t.TempDir(), "arcade.yaml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Name != "arcade-local" {
		t.Errorf("name = %q, want arcade-local", sc.Name)
	}
	if sc.Viewport.Width != 1600 || sc.Viewport.Height != 1200 {
		t.Errorf("viewport = %+v, want 1600x1200", sc.Viewport)
	}
	if sc.OutDir != "verification" {
		t.Errorf("out_dir = %q, want the verification default", sc.OutDir)
	}
	if len(sc.Steps) != 5 {
		t.Fatalf("len(steps) = %d, want 5", len(sc.Steps))
	}
	if sc.Steps[0].Timeout() != 5*time.Second {
		t.Errorf("step 1 timeout = %v, want 5s", sc.Steps[0].Timeout())
	}
}

func TestLoadScenario_Invalid(t *testing.T) {
	// WHAT: Malformed files fail at load, naming the problem.
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("name: x\nurl: http://localhost\nsteps:\n  - {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(bad); err == nil {
		t.Error("expected error for step without action")
	}

	if _, err := LoadScenario(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	notYAML := filepath.Join(dir, "junk.yaml")
	if err := os.WriteFile(notYAML, []byte("\t{unbalanced"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(notYAML); err == nil {
		t.Error("expected error for unparseable YAML")
	}
}

func TestArcade_Shape(t *testing.T) {
	// WHAT: The built-in scenario targets the local arcade page with the
	// front/side/input-held capture sequence.
	// WHY: This sequence is the published contract of the no-flag run; any
	// drift in names, order or timings is a behaviour change.
	sc := Arcade()
	if err := sc.Validate(); err != nil {
		t.Fatalf("Arcade() invalid: %v", err)
	}
	if sc.URL != "http://localhost:8080" {
		t.Errorf("url = %q", sc.URL)
	}
	if sc.Viewport.Width != 1600 || sc.Viewport.Height != 1200 {
		t.Errorf("viewport = %+v, want 1600x1200", sc.Viewport)
	}
	if sc.OutDir != "verification" {
		t.Errorf("out_dir = %q", sc.OutDir)
	}

	wantKinds := []string{
		StepWaitFor, StepSleep, StepScreenshot,
		StepEval, StepSleep, StepScreenshot,
		StepKeyDown, StepSleep, StepScreenshot,
		StepKeyUp,
	}
	if len(sc.Steps) != len(wantKinds) {
		t.Fatalf("len(steps) = %d, want %d", len(sc.Steps), len(wantKinds))
	}
	for i, want := range wantKinds {
		if got := sc.Steps[i].Kind(); got != want {
			t.Errorf("step %d kind = %q, want %q", i+1, got, want)
		}
	}

	if sc.Steps[0].WaitFor != "#game-canvas" {
		t.Errorf("wait selector = %q", sc.Steps[0].WaitFor)
	}
	if sc.Steps[1].SleepMs != 2000 || sc.Steps[4].SleepMs != 1000 || sc.Steps[7].SleepMs != 500 {
		t.Error("settle pauses drifted from 2000/1000/500 ms")
	}
	shots := []string{sc.Steps[2].Screenshot, sc.Steps[5].Screenshot, sc.Steps[8].Screenshot}
	wantShots := []string{"arcade_front.png", "arcade_side.png", "arcade_input_up.png"}
	for i := range shots {
		if shots[i] != wantShots[i] {
			t.Errorf("screenshot %d = %q, want %q", i+1, shots[i], wantShots[i])
		}
	}
	if sc.Steps[6].KeyDown != "ArrowUp" || sc.Steps[9].KeyUp != "ArrowUp" {
		t.Error("input step must hold and release ArrowUp")
	}
	if !strings.Contains(sc.Steps[3].Eval, ".arcade-cabinet") ||
		!strings.Contains(sc.Steps[3].Eval, "rotateY(-25deg)") {
		t.Error("rotate script must target .arcade-cabinet with rotateY(-25deg)")
	}
}

func TestArcade_KeyStateBalanced(t *testing.T) {
	// WHAT: Every key_down has a matching key_up, so the page is left with
	// no keys stuck down after a clean run.
	sc := Arcade()
	held := map[string]int{}
	for _, s := range sc.Steps {
		if s.KeyDown != "" {
			held[s.KeyDown]++
		}
		if s.KeyUp != "" {
			held[s.KeyUp]--
		}
	}
	for key, n := range held {
		if n != 0 {
			t.Errorf("key %q down/up imbalance: %d", key, n)
		}
	}
}
