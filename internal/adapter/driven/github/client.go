// Package github implements the comment and article ports using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/google/go-querystring/query"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_secondary_ratelimit"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

// htmlMediaType asks GitHub to render markdown bodies to HTML (body_html).
const htmlMediaType = "application/vnd.github.html+json"

// Compile-time interface satisfaction checks.
var (
	_ driven.CommentFetcher = (*Client)(nil)
	_ driven.ArticleSource  = (*Client)(nil)
)

// Client implements the driven ports on top of the GitHub REST API.
type Client struct {
	gh *gh.Client
}

// Options configures NewClient. The zero value talks to api.github.com anonymously
// without response caching.
type Options struct {
	Token     string // Optional PAT; anonymous requests are limited to 60/hour.
	BaseURL   string // Defaults to https://api.github.com/.
	HTTPCache bool   // Serve fresh responses from memory and revalidate stale ones by ETag.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (max-age caching and ETag revalidation, only when opts.HTTPCache is set)
//  2. go-github-ratelimit (rate limit detection; a secondary limit response is
//     returned as-is instead of being slept on and retried)
//  3. go-github (GitHub REST API client, PAT auth when a token is configured)
func NewClient(opts Options) (*Client, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if opts.HTTPCache {
		transport = httpcache.NewMemoryCacheTransport()
	}

	// A zero single-sleep limit makes every detected secondary limit exceed it,
	// so the 403/429 reaches classifyResponse. WithNoSleep is a no-op in v2.0.2.
	rateLimitClient := github_ratelimit.NewClient(transport,
		github_secondary_ratelimit.WithSingleSleepLimit(0, onSecondaryLimit),
	)
	client := gh.NewClient(rateLimitClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}

	if opts.BaseURL != "" {
		u, err := parseBaseURL(opts.BaseURL)
		if err != nil {
			return nil, err
		}
		client.BaseURL = u
	}

	return &Client{gh: client}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchComments retrieves the first page of comments on an issue, sized by maxComments.
// Further pages are never requested.
func (c *Client) FetchComments(ctx context.Context, owner, repo string, issueNumber, maxComments int) ([]model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: maxComments},
	}

	u, err := withQuery(fmt.Sprintf("repos/%s/%s/issues/%d/comments", url.PathEscape(owner), url.PathEscape(repo), issueNumber), opts)
	if err != nil {
		return nil, err
	}

	var comments []issueCommentJSON
	resp, err := c.get(ctx, u, &comments)
	if err != nil {
		return nil, fmt.Errorf("listing comments for %s/%s#%d: %w", owner, repo, issueNumber, err)
	}

	logRateLimit(resp, owner+"/"+repo+"/comments", len(comments))

	result := make([]model.Comment, 0, len(comments))
	for _, comment := range comments {
		result = append(result, mapComment(comment))
	}

	return result, nil
}

// ListArticles retrieves open issues carrying the given label, with HTML bodies.
// Pull requests returned by the issues endpoint are skipped. Only the first page
// is requested.
func (c *Client) ListArticles(ctx context.Context, owner, repo, label string, perPage int) ([]model.Article, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{label},
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	u, err := withQuery(fmt.Sprintf("repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo)), opts)
	if err != nil {
		return nil, err
	}

	var issues []issueJSON
	resp, err := c.get(ctx, u, &issues)
	if err != nil {
		return nil, fmt.Errorf("listing %q issues for %s/%s: %w", label, owner, repo, err)
	}

	logRateLimit(resp, owner+"/"+repo+"/issues", len(issues))

	articles := make([]model.Article, 0, len(issues))
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue
		}
		articles = append(articles, mapArticle(issue))
	}

	return articles, nil
}

// get issues a GET with the HTML media type and decodes the body into v.
func (c *Client) get(ctx context.Context, u string, v any) (*gh.Response, error) {
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", htmlMediaType)

	resp, err := c.gh.Do(ctx, req, v)
	return resp, classifyResponse(resp, err)
}

// classifyResponse maps go-github results onto the domain error taxonomy.
// An error with an HTTP response attached is a status failure (or an undecodable
// 200 body); an error without one never reached the server.
func classifyResponse(resp *gh.Response, err error) error {
	if err != nil {
		if resp == nil || resp.Response == nil {
			return &model.TransportError{Err: err}
		}
		if resp.StatusCode == http.StatusOK {
			return &model.RemoteFetchError{
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: %v", model.ErrMalformedResponse, err),
			}
		}
		return &model.RemoteFetchError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &model.RemoteFetchError{StatusCode: resp.StatusCode}
	}

	return nil
}

// issueCommentJSON mirrors the fields of an issue comment we read. go-github's
// IssueComment has no body_html field, so the body is decoded here directly.
type issueCommentJSON struct {
	ID        int64        `json:"id"`
	User      *gh.User     `json:"user"`
	HTMLURL   string       `json:"html_url"`
	Body      string       `json:"body"`
	BodyHTML  string       `json:"body_html"`
	CreatedAt gh.Timestamp `json:"created_at"`
}

type issueJSON struct {
	Number      int          `json:"number"`
	Title       string       `json:"title"`
	User        *gh.User     `json:"user"`
	HTMLURL     string       `json:"html_url"`
	BodyHTML    string       `json:"body_html"`
	Comments    int          `json:"comments"`
	CreatedAt   gh.Timestamp `json:"created_at"`
	PullRequest *struct{}    `json:"pull_request,omitempty"`
}

// mapComment converts an API comment to a domain Comment.
// It uses GetXxx() helper methods on the user to avoid nil pointer panics.
func mapComment(c issueCommentJSON) model.Comment {
	return model.Comment{
		ID:               c.ID,
		AuthorLogin:      c.User.GetLogin(),
		AuthorAvatarURL:  c.User.GetAvatarURL(),
		AuthorProfileURL: c.User.GetHTMLURL(),
		HTMLURL:          c.HTMLURL,
		Body:             c.Body,
		BodyHTML:         model.TrustAPIHTML(c.BodyHTML),
		CreatedAt:        c.CreatedAt.Time,
	}
}

func mapArticle(i issueJSON) model.Article {
	return model.Article{
		Number:       i.Number,
		Title:        i.Title,
		Author:       i.User.GetLogin(),
		HTMLURL:      i.HTMLURL,
		BodyHTML:     model.TrustAPIHTML(i.BodyHTML),
		CommentCount: i.Comments,
		CreatedAt:    i.CreatedAt.Time,
	}
}

// withQuery encodes opts with go-querystring, the way go-github builds list URLs.
func withQuery(path string, opts any) (string, error) {
	values, err := query.Values(opts)
	if err != nil {
		return "", fmt.Errorf("encoding query for %s: %w", path, err)
	}
	if len(values) == 0 {
		return path, nil
	}
	return path + "?" + values.Encode(), nil
}

// parseBaseURL parses an API root, adding the trailing slash go-github requires.
func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return u, nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// onSecondaryLimit reports a secondary rate limit that is handed back to the caller.
func onSecondaryLimit(cb *github_secondary_ratelimit.CallbackContext) {
	attrs := []any{}
	if cb.Request != nil {
		attrs = append(attrs, "path", cb.Request.URL.Path)
	}
	if cb.ResetTime != nil {
		attrs = append(attrs, "retry_in", time.Until(*cb.ResetTime).Round(time.Second))
	}
	slog.Warn("github secondary rate limit hit", attrs...)
}
