package driven

import (
	"context"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// CommentFetcher defines the driven port for reading issue comments.
type CommentFetcher interface {
	// FetchComments returns at most maxComments comments for the issue, in the
	// order the API returned them. Only the first page is requested.
	// Non-200 responses fail with *model.RemoteFetchError; requests that never
	// got a response fail with *model.TransportError.
	FetchComments(ctx context.Context, owner, repo string, issueNumber, maxComments int) ([]model.Comment, error)
}
