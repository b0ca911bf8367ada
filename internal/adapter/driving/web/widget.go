// Package web renders comments widgets and blog pages as HTML using templ components.
// The components live in the .templ files; run `go tool templ generate` after
// editing them.
package web

import (
	"context"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// DateLayout is the en-US "medium" date style used for comment timestamps.
const DateLayout = "Jan 2, 2006"

const (
	buttonTextFirst = "Be the first to comment on GitHub"
	buttonTextJoin  = "Join the discussion on GitHub"
)

// Renderer turns comments into widget markup. It is safe for concurrent use.
type Renderer struct {
	loc    *time.Location
	strict bool
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLocation sets the time zone timestamps are displayed in.
func WithLocation(loc *time.Location) RendererOption {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithStrictSanitizing re-sanitizes API-provided comment bodies with the UGC
// policy. Off by default: body_html is written exactly as GitHub rendered it.
func WithStrictSanitizing(strict bool) RendererOption {
	return func(r *Renderer) {
		r.strict = strict
	}
}

// NewRenderer creates a Renderer. Timestamps default to the local time zone.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{loc: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderComment renders one comment to a markup fragment. The output depends
// only on the comment and the renderer's time zone.
func (r *Renderer) RenderComment(c model.Comment) string {
	return renderString(r.Comment(c))
}

// RenderButton renders the call-to-action anchor.
func RenderButton(hasZeroComments bool, repoName, repoOwner string, issueNumber int) string {
	return renderString(Button(hasZeroComments, repoName, repoOwner, issueNumber))
}

// RenderWidget renders the concatenated comments followed by the button.
func (r *Renderer) RenderWidget(comments []model.Comment, cfg model.WidgetConfig) string {
	return renderString(r.Widget(comments, cfg))
}

// FormatDate formats t in the renderer's time zone using DateLayout.
func (r *Renderer) FormatDate(t time.Time) string {
	return t.In(r.loc).Format(DateLayout)
}

// body picks the markup for a comment body: the API-rendered HTML when present,
// otherwise the markdown source rendered and sanitized locally.
func (r *Renderer) body(c model.Comment) model.TrustedHTML {
	if c.BodyHTML == "" {
		return RenderMarkdown(c.Body)
	}
	if r.strict {
		return Sanitize(c.BodyHTML.String())
	}
	return c.BodyHTML
}

func buttonText(hasZeroComments bool) string {
	if hasZeroComments {
		return buttonTextFirst
	}
	return buttonTextJoin
}

// composerURL is the issue page anchored at its comment form. The anchor
// attribute sanitizes it like any other href.
func composerURL(repoOwner, repoName string, issueNumber int) string {
	cfg := model.WidgetConfig{RepositoryOwner: repoOwner, RepositoryName: repoName, IssueNumber: issueNumber}
	return cfg.CommentComposerURL()
}

// renderString renders c into a string. Writes to a strings.Builder cannot fail
// and the widget components return no errors of their own.
func renderString(c templ.Component) string {
	var sb strings.Builder
	_ = c.Render(context.Background(), &sb)
	return sb.String()
}
