package capture

// arcadeRotateScript tilts the cabinet container for the side view. The
// element is required: a missing mutation target would make the side capture
// silently identical to the front one, which is exactly the regression this
// scenario exists to catch.
const arcadeRotateScript = `() => {
	const el = document.querySelector('.arcade-cabinet');
	if (!el) {
		throw new Error('no element matches .arcade-cabinet');
	}
	el.style.transform = 'rotateY(-25deg)';
	return el.className;
}`

// Arcade returns the built-in verification scenario for the arcade-cabinet
// UI: a front view, a rotated side view, and a view while ArrowUp is held.
func Arcade() Scenario {
	return Scenario{
		Name:     "arcade",
		URL:      "http://localhost:8080",
		Viewport: Viewport{Width: 1600, Height: 1200},
		OutDir:   "verification",
		Steps: []Step{
			{WaitFor: "#game-canvas"},
			{SleepMs: 2000},
			{Screenshot: "arcade_front.png"},
			{Eval: arcadeRotateScript},
			{SleepMs: 1000},
			{Screenshot: "arcade_side.png"},
			{KeyDown: "ArrowUp"},
			{SleepMs: 500},
			{Screenshot: "arcade_input_up.png"},
			{KeyUp: "ArrowUp"},
		},
	}
}
