// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple page rendering from domain model types.
package viewmodel

import "github.com/ericfisherdev/tinyutterances/internal/domain/model"

// ArticleViewModel holds presentation-ready data for one article page.
type ArticleViewModel struct {
	SiteTitle    string
	Number       int
	Title        string
	Author       string
	PublishedOn  string
	IssueURL     string
	CommentsText string
	Body         model.TrustedHTML
	Widget       model.WidgetConfig
}

// ArticleLinkViewModel is one entry of the index page.
type ArticleLinkViewModel struct {
	Title        string
	Path         string
	PublishedOn  string
	CommentsText string
}

// IndexViewModel holds presentation-ready data for the index page.
type IndexViewModel struct {
	Title    string
	Articles []ArticleLinkViewModel
}
