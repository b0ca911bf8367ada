// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

// ContainerSelector matches the elements that host a comments widget.
const ContainerSelector = ".tiny-utterances"

// DefaultFetchConcurrency bounds in-flight comment requests per hydration pass.
const DefaultFetchConcurrency = 8

// WidgetRenderer renders the markup that replaces a container's contents.
type WidgetRenderer interface {
	RenderWidget(comments []model.Comment, cfg model.WidgetConfig) string
}

// WidgetService hydrates comments widget containers in HTML documents.
type WidgetService struct {
	fetcher     driven.CommentFetcher
	renderer    WidgetRenderer
	store       driven.DiagnosticStore
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
	newRunID    func() string
}

// NewWidgetService creates a WidgetService. store may be nil, in which case
// outcomes are only logged. concurrency <= 0 selects DefaultFetchConcurrency.
func NewWidgetService(
	fetcher driven.CommentFetcher,
	renderer WidgetRenderer,
	store driven.DiagnosticStore,
	concurrency int,
	logger *slog.Logger,
) *WidgetService {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}

	return &WidgetService{
		fetcher:     fetcher,
		renderer:    renderer,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
}

// containerJob carries one container through a hydration pass.
type containerJob struct {
	sel      *goquery.Selection
	result   model.ContainerResult
	comments []model.Comment
	parent   int // Index of the nearest enclosing container job, or -1.
}

// Hydrate finds every widget container under root and fills it in.
//
// Configuration is read once per container; containers with invalid
// configuration are skipped. Comment fetches for all valid containers run
// concurrently. Results are then applied in document order, so no node is
// mutated from more than one goroutine. A failed container keeps its original
// contents. A container nested in one that rendered is superseded: its subtree
// was replaced, so it is reported but not written. Hydrate never fails as a
// whole: per-container errors are logged and returned in the report.
func (s *WidgetService) Hydrate(ctx context.Context, root *goquery.Selection, document string) *model.HydrationReport {
	report := &model.HydrationReport{
		RunID:     s.newRunID(),
		Document:  document,
		StartedAt: s.now(),
	}

	containers := root.Find(ContainerSelector)
	jobs := make([]containerJob, containers.Length())
	byNode := make(map[*html.Node]int, len(jobs))

	containers.Each(func(i int, sel *goquery.Selection) {
		byNode[sel.Get(0)] = i
		cfg, err := ParseWidgetConfig(sel)
		jobs[i] = containerJob{
			sel:    sel,
			result: model.ContainerResult{Index: i, Config: cfg, State: model.ContainerPending},
			parent: enclosingContainer(sel.Get(0), byNode),
		}
		if err != nil {
			jobs[i].result.State = model.ContainerSkipped
			jobs[i].result.Err = err
			s.logger.Warn("skipping comments widget with invalid configuration",
				"document", document,
				"container", i,
				"error", err,
			)
		}
	})

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range jobs {
		job := &jobs[i]
		if job.result.State != model.ContainerPending {
			continue
		}

		g.Go(func() error {
			cfg := job.result.Config
			comments, err := s.fetcher.FetchComments(ctx, cfg.RepositoryOwner, cfg.RepositoryName, cfg.IssueNumber, cfg.MaxComments)
			if err != nil {
				job.result.State = model.ContainerFailed
				job.result.Err = err
				return nil
			}
			job.comments = comments
			return nil
		})
	}

	// Fetch failures are recorded on each job; the group itself never errors.
	_ = g.Wait()

	report.Results = make([]model.ContainerResult, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		switch {
		case job.result.State.IsTerminal():
		case job.parent >= 0 && replacedSubtree(jobs[job.parent].result.State):
			job.result.State = model.ContainerSuperseded
			job.result.CommentCount = len(job.comments)
		default:
			job.sel.SetHtml(s.renderer.RenderWidget(job.comments, job.result.Config))
			job.result.State = model.ContainerRendered
			job.result.CommentCount = len(job.comments)
		}
		s.logResult(document, job.result)
		report.Results = append(report.Results, job.result)
	}

	s.record(ctx, report)

	return report
}

// enclosingContainer returns the job index of the nearest ancestor of n that is
// itself a container, or -1. Containers are visited in document order, so every
// ancestor is already in byNode.
func enclosingContainer(n *html.Node, byNode map[*html.Node]int) int {
	for p := n.Parent; p != nil; p = p.Parent {
		if i, ok := byNode[p]; ok {
			return i
		}
	}
	return -1
}

// replacedSubtree reports whether a container in this state overwrote its
// original children.
func replacedSubtree(state model.ContainerState) bool {
	return state == model.ContainerRendered || state == model.ContainerSuperseded
}

// HydrateHTML parses an HTML document from r, hydrates it and writes the result
// to w. When fragment is set, only the contents of <body> are written, which
// suits inputs that were never full documents.
func (s *WidgetService) HydrateHTML(ctx context.Context, r io.Reader, w io.Writer, document string, fragment bool) (*model.HydrationReport, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", document, err)
	}

	report := s.Hydrate(ctx, doc.Selection, document)

	if !fragment {
		if err := html.Render(w, doc.Get(0)); err != nil {
			return report, fmt.Errorf("writing %s: %w", document, err)
		}
		return report, nil
	}

	markup, err := doc.Find("body").Html()
	if err != nil {
		return report, fmt.Errorf("rendering %s: %w", document, err)
	}

	if _, err := io.WriteString(w, markup); err != nil {
		return report, fmt.Errorf("writing %s: %w", document, err)
	}

	return report, nil
}

// RenderFragment fetches and renders the widget body for a single configuration.
// Unlike Hydrate, errors are returned to the caller.
func (s *WidgetService) RenderFragment(ctx context.Context, cfg model.WidgetConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	result := model.ContainerResult{Config: cfg, State: model.ContainerFailed}
	defer func() {
		s.logResult("fragment", result)
		s.record(ctx, &model.HydrationReport{
			RunID:     s.newRunID(),
			Document:  "fragment",
			StartedAt: s.now(),
			Results:   []model.ContainerResult{result},
		})
	}()

	comments, err := s.fetcher.FetchComments(ctx, cfg.RepositoryOwner, cfg.RepositoryName, cfg.IssueNumber, cfg.MaxComments)
	if err != nil {
		result.Err = err
		return "", err
	}

	result.State = model.ContainerRendered
	result.CommentCount = len(comments)

	return s.renderer.RenderWidget(comments, cfg), nil
}

func (s *WidgetService) logResult(document string, res model.ContainerResult) {
	switch res.State {
	case model.ContainerRendered:
		s.logger.Debug("comments widget rendered",
			"document", document,
			"container", res.Index,
			"repo", res.Config.RepoFullName(),
			"issue", res.Config.IssueNumber,
			"comments", res.CommentCount,
		)
	case model.ContainerSuperseded:
		s.logger.Debug("comments widget superseded by enclosing widget",
			"document", document,
			"container", res.Index,
			"repo", res.Config.RepoFullName(),
			"issue", res.Config.IssueNumber,
		)
	case model.ContainerFailed:
		s.logger.Error("comments widget fetch failed",
			"document", document,
			"container", res.Index,
			"repo", res.Config.RepoFullName(),
			"issue", res.Config.IssueNumber,
			"status", model.StatusCodeOf(res.Err),
			"error", res.Err,
		)
	}
}

// record persists the report when a store is configured. Storage failures are
// logged and never affect the hydrated output.
func (s *WidgetService) record(ctx context.Context, report *model.HydrationReport) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		s.logger.Error("failed to save hydration report", "run_id", report.RunID, "error", err)
	}
}

// ParseWidgetConfig derives a WidgetConfig from a container's attributes.
// Attributes are read with the data- prefix first, falling back to the bare name.
func ParseWidgetConfig(sel *goquery.Selection) (model.WidgetConfig, error) {
	owner, _ := containerAttr(sel, "repo-owner")
	if owner == "" {
		return model.WidgetConfig{}, &model.ConfigError{Attribute: "repo-owner", Reason: "is required"}
	}

	name, _ := containerAttr(sel, "repo-name")
	if name == "" {
		return model.WidgetConfig{}, &model.ConfigError{Attribute: "repo-name", Reason: "is required"}
	}

	issueNumber, err := positiveIntAttr(sel, "issue-number")
	if err != nil {
		return model.WidgetConfig{}, err
	}

	maxComments, err := positiveIntAttr(sel, "max-comments")
	if err != nil {
		return model.WidgetConfig{}, err
	}

	cfg := model.WidgetConfig{
		RepositoryOwner: owner,
		RepositoryName:  name,
		IssueNumber:     issueNumber,
		MaxComments:     maxComments,
	}

	return cfg, cfg.Validate()
}

func containerAttr(sel *goquery.Selection, name string) (string, bool) {
	if v, ok := sel.Attr("data-" + name); ok {
		return strings.TrimSpace(v), true
	}
	if v, ok := sel.Attr(name); ok {
		return strings.TrimSpace(v), true
	}
	return "", false
}

func positiveIntAttr(sel *goquery.Selection, name string) (int, error) {
	raw, ok := containerAttr(sel, name)
	if !ok || raw == "" {
		return 0, &model.ConfigError{Attribute: name, Reason: "is required"}
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &model.ConfigError{Attribute: name, Value: raw, Reason: "must be a positive integer"}
	}

	return n, nil
}
