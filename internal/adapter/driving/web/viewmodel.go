package web

import (
	"fmt"

	vm "github.com/ericfisherdev/tinyutterances/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// toArticleViewModel converts a domain Article to an ArticleViewModel.
func (r *Renderer) toArticleViewModel(a model.Article, site model.Site) vm.ArticleViewModel {
	return vm.ArticleViewModel{
		SiteTitle:    site.Title,
		Number:       a.Number,
		Title:        a.Title,
		Author:       a.Author,
		PublishedOn:  r.FormatDate(a.CreatedAt),
		IssueURL:     a.HTMLURL,
		CommentsText: commentsText(a.CommentCount),
		Body:         a.BodyHTML,
		Widget:       site.WidgetFor(a),
	}
}

// toIndexViewModel converts the article list to an IndexViewModel, keeping API order.
func (r *Renderer) toIndexViewModel(site model.Site, articles []model.Article) vm.IndexViewModel {
	links := make([]vm.ArticleLinkViewModel, 0, len(articles))
	for _, a := range articles {
		links = append(links, vm.ArticleLinkViewModel{
			Title:        a.Title,
			Path:         a.FileName(),
			PublishedOn:  r.FormatDate(a.CreatedAt),
			CommentsText: commentsText(a.CommentCount),
		})
	}

	return vm.IndexViewModel{
		Title:    site.Title,
		Articles: links,
	}
}

// commentsText pluralizes the comment count: "1 comment", "3 comments".
func commentsText(n int) string {
	if n == 1 {
		return "1 comment"
	}
	return fmt.Sprintf("%d comments", n)
}
