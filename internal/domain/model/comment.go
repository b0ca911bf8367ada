package model

import "time"

// TrustedHTML is markup written to output verbatim, without escaping.
// Values originate from the GitHub API's HTML media type or from the sanitizer.
// Never convert user-supplied input to TrustedHTML.
type TrustedHTML string

// TrustAPIHTML marks HTML rendered by the GitHub API (the body_html field) as trusted.
func TrustAPIHTML(s string) TrustedHTML {
	return TrustedHTML(s)
}

// String returns the raw markup.
func (h TrustedHTML) String() string {
	return string(h)
}

// Comment represents an issue comment as returned by the GitHub Issues API
// when requested with the HTML media type.
type Comment struct {
	ID               int64
	AuthorLogin      string
	AuthorAvatarURL  string
	AuthorProfileURL string
	HTMLURL          string // Permalink to the comment.
	Body             string // Raw markdown; only used when BodyHTML is empty.
	BodyHTML         TrustedHTML
	CreatedAt        time.Time
}
