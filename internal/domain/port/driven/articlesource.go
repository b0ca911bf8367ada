package driven

import (
	"context"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// ArticleSource lists the issues that make up the blog.
type ArticleSource interface {
	ListArticles(ctx context.Context, owner, repo, label string, perPage int) ([]model.Article, error)
}
