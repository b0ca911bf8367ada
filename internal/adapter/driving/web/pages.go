package web

import (
	"context"
	"io"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// StylesheetName is the file name of the widget stylesheet, served under
// /static/ and copied next to generated pages.
const StylesheetName = "tiny-utterances.css"

// WriteArticlePage renders a full article document to w.
func (r *Renderer) WriteArticlePage(ctx context.Context, w io.Writer, article model.Article, site model.Site) error {
	view := r.toArticleViewModel(article, site)
	return Layout(article.Title+" · "+site.Title, ArticleBody(view)).Render(ctx, w)
}

// WriteIndexPage renders the index document to w.
func (r *Renderer) WriteIndexPage(ctx context.Context, w io.Writer, site model.Site, articles []model.Article) error {
	return Layout(site.Title, IndexBody(r.toIndexViewModel(site, articles))).Render(ctx, w)
}
