package proof

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextOf parses htmlSrc and returns the visible text of the first element
// matching selector. Supported selector forms are "#id", ".class" and a bare
// tag name; anything richer belongs in the page itself, not in checks.
func TextOf(htmlSrc, selector string) (string, error) {
	if strings.TrimSpace(htmlSrc) == "" {
		return "", fmt.Errorf("proof: empty HTML")
	}
	match, err := matcherFor(selector)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return "", fmt.Errorf("proof: parse HTML: %w", err)
	}

	node := findNode(doc, match)
	if node == nil {
		return "", fmt.Errorf("proof: no element matches %q", selector)
	}
	return collectText(node), nil
}

// matcherFor compiles a selector into a node predicate.
func matcherFor(selector string) (func(*html.Node) bool, error) {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return nil, fmt.Errorf("proof: empty selector")
	}
	switch {
	case strings.HasPrefix(sel, "#"):
		id := sel[1:]
		if id == "" {
			return nil, fmt.Errorf("proof: bare # selector")
		}
		return func(n *html.Node) bool { return attrVal(n, "id") == id }, nil
	case strings.HasPrefix(sel, "."):
		class := sel[1:]
		if class == "" {
			return nil, fmt.Errorf("proof: bare . selector")
		}
		return func(n *html.Node) bool { return hasClass(n, class) }, nil
	default:
		tag := strings.ToLower(sel)
		return func(n *html.Node) bool { return n.Data == tag }, nil
	}
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// collectText gathers text nodes below n, skipping script and style subtrees,
// joining fragments with single spaces.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
