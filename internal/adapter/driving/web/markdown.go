package web

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderMarkdown converts a raw comment body to sanitized HTML. It is the
// fallback for comments that arrive without body_html.
// Returns empty string for empty input.
func RenderMarkdown(src string) model.TrustedHTML {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return Sanitize(src)
	}

	return Sanitize(buf.String())
}

// Sanitize runs untrusted markup through the UGC policy. Its output is the only
// HTML not originating from the GitHub API that may be trusted.
func Sanitize(src string) model.TrustedHTML {
	return model.TrustedHTML(htmlSanitizer.Sanitize(src))
}
