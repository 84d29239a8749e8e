// Package content prepares message bodies: Markdown rendering and HTML
// sanitizing for the html_content field.
package content

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// Markdown renders src to HTML. Raw HTML in src is omitted by goldmark's
// default renderer.
func Markdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// SanitizeHTML strips scripts, event handlers and other unsafe markup while
// keeping the formatting and inline styles that mail clients render.
func SanitizeHTML(s string) string {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.AllowStyling()
		policy.AllowAttrs("style").Globally()
		policy.AllowElements("html", "head", "body", "center", "font")
	})
	return policy.Sanitize(s)
}
