package proof

import (
	"strings"
	"testing"
)

const fixtureHTML = `<!DOCTYPE html>
<html>
<head><title>Arcade</title><style>body { margin: 0; }</style></head>
<body>
  <h1 id="headline">Insert Coin</h1>
  <div class="arcade-cabinet">
    <canvas id="game-canvas"></canvas>
    <p class="marquee">High Score <b>9999</b></p>
  </div>
  <script>console.log("boot");</script>
</body>
</html>`

func TestTextOf_ByID(t *testing.T) {
	// WHAT: "#id" selectors return the element's visible text.
	got, err := TextOf(fixtureHTML, "#headline")
	if err != nil {
		t.Fatalf("TextOf: %v", err)
	}
	if got != "Insert Coin" {
		t.Errorf("text = %q, want %q", got, "Insert Coin")
	}
}

func TestTextOf_ByClass(t *testing.T) {
	// WHAT: ".class" selectors match and inline children are joined.
	got, err := TextOf(fixtureHTML, ".marquee")
	if err != nil {
		t.Fatalf("TextOf: %v", err)
	}
	if got != "High Score 9999" {
		t.Errorf("text = %q, want %q", got, "High Score 9999")
	}
}

func TestTextOf_ByTag(t *testing.T) {
	// WHAT: Bare tag selectors match the first such element.
	got, err := TextOf(fixtureHTML, "h1")
	if err != nil {
		t.Fatalf("TextOf: %v", err)
	}
	if got != "Insert Coin" {
		t.Errorf("text = %q, want %q", got, "Insert Coin")
	}
}

func TestTextOf_SkipsScriptAndStyle(t *testing.T) {
	// WHAT: Script and style bodies never leak into extracted text.
	// WHY: "console.log" in a text assertion would be a nonsense match.
	got, err := TextOf(fixtureHTML, "body")
	if err != nil {
		t.Fatalf("TextOf: %v", err)
	}
	if strings.Contains(got, "console.log") || strings.Contains(got, "margin") {
		t.Errorf("text leaked script/style content: %q", got)
	}
}

func TestTextOf_NoMatch(t *testing.T) {
	// WHAT: An unmatched selector is an error naming the selector.
	_, err := TextOf(fixtureHTML, "#missing")
	if err == nil {
		t.Fatal("expected error for unmatched selector")
	}
	if !strings.Contains(err.Error(), "#missing") {
		t.Errorf("error = %v, want the selector named", err)
	}
}

func TestTextOf_BadInputs(t *testing.T) {
	// WHAT: Empty HTML and degenerate selectors fail up front.
	cases := []struct {
		name     string
		html     string
		selector string
	}{
		{"empty html", "", "#x"},
		{"empty selector", fixtureHTML, ""},
		{"bare hash", fixtureHTML, "#"},
		{"bare dot", fixtureHTML, "."},
	}
	for _, tc := range cases {
		if _, err := TextOf(tc.html, tc.selector); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestDigestDOM_Headings(t *testing.T) {
	// WHAT: Headings survive the sanitize-then-convert pipeline as Markdown.
	got, err := DigestDOM(fixtureHTML, "http://localhost:8080")
	if err != nil {
		t.Fatalf("DigestDOM: %v", err)
	}
	if !strings.Contains(got, "# Insert Coin") {
		t.Errorf("digest missing heading, got:\n%s", got)
	}
}

func TestDigestDOM_StripsScript(t *testing.T) {
	// WHAT: Script bodies are removed before conversion.
	// WHY: The digest is archived as an artifact; stored markup must be inert.
	got, err := DigestDOM(fixtureHTML, "http://localhost:8080")
	if err != nil {
		t.Fatalf("DigestDOM: %v", err)
	}
	if strings.Contains(got, "console.log") {
		t.Errorf("digest leaked script content:\n%s", got)
	}
}

func TestDigestDOM_Table(t *testing.T) {
	// WHAT: Tables convert through the table plugin rather than flattening.
	src := `<table><tr><th>Key</th></tr><tr><td>ArrowUp</td></tr></table>`
	got, err := DigestDOM(src, "http://localhost:8080")
	if err != nil {
		t.Fatalf("DigestDOM: %v", err)
	}
	if !strings.Contains(got, "ArrowUp") {
		t.Errorf("digest lost table cell, got:\n%s", got)
	}
}

func TestDigestDOM_Empty(t *testing.T) {
	// WHAT: Empty input is rejected instead of producing an empty artifact.
	if _, err := DigestDOM("   ", "http://localhost:8080"); err == nil {
		t.Fatal("expected error for empty HTML")
	}
}
