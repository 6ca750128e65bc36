// Package proof checks the artifacts a capture run produced: that PNGs
// decode and have the right shape, that two captures actually differ, that
// PDFs validate, and what a page's DOM said in reviewable Markdown form.
// Verification never mutates an artifact.
package proof

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Shared across calls; both are safe for concurrent use once constructed.
var (
	sanitizer   = bluemonday.UGCPolicy()
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// DigestDOM sanitises raw page HTML and converts it to Markdown, so a
// reviewer can diff what the page said rather than how it looked. pageURL
// resolves relative links.
func DigestDOM(html, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("proof: empty HTML")
	}

	clean := sanitizer.Sanitize(html)

	md, err := mdConverter.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("proof: convert DOM: %w", err)
	}
	return strings.TrimSpace(md), nil
}
