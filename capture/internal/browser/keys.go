package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"
)

// namedKeys maps DOM KeyboardEvent.key names (lowercased) to Rod input keys.
var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"shift":      input.ShiftLeft,
	"control":    input.ControlLeft,
	"alt":        input.AltLeft,
	" ":          input.Space,
	"space":      input.Space,
}

// KeyFromName resolves a DOM key name ("ArrowUp", "Enter", "a") to a Rod
// input key. Unknown multi-character names are an error so a typo in a
// scenario fails at parse time, not as a silently-wrong keypress.
func KeyFromName(name string) (input.Key, error) {
	if k, ok := namedKeys[strings.ToLower(name)]; ok {
		return k, nil
	}
	if len(name) == 1 {
		return input.Key(name[0]), nil
	}
	return 0, fmt.Errorf("browser: unknown key name %q", name)
}
