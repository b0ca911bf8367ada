package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

// articlesPerPage matches the single page of issues the blog is built from.
const articlesPerPage = 50

// PageRenderer renders complete blog documents.
type PageRenderer interface {
	WriteArticlePage(ctx context.Context, w io.Writer, article model.Article, site model.Site) error
	WriteIndexPage(ctx context.Context, w io.Writer, site model.Site, articles []model.Article) error
}

// BuildResult summarizes a site build.
type BuildResult struct {
	OutDir   string
	Articles int
	Reports  []*model.HydrationReport
}

// SiteBuilder generates a static blog from the labelled issues of a repository.
// Every article page embeds a comments widget that is hydrated before writing.
type SiteBuilder struct {
	source  driven.ArticleSource
	widgets *WidgetService
	pages   PageRenderer
	site    model.Site
	assets  map[string][]byte
	logger  *slog.Logger
}

// NewSiteBuilder creates a SiteBuilder. assets are written verbatim to the
// output directory under their map keys (e.g. the widget stylesheet).
func NewSiteBuilder(
	source driven.ArticleSource,
	widgets *WidgetService,
	pages PageRenderer,
	site model.Site,
	assets map[string][]byte,
	logger *slog.Logger,
) *SiteBuilder {
	return &SiteBuilder{
		source:  source,
		widgets: widgets,
		pages:   pages,
		site:    site,
		assets:  assets,
		logger:  logger,
	}
}

// Build replaces outDir with a freshly generated site: one page per article,
// an index page and the static assets. Widget failures only leave that article's
// comments section empty; listing, rendering and I/O failures abort the build.
func (b *SiteBuilder) Build(ctx context.Context, outDir string) (*BuildResult, error) {
	if err := resetDir(outDir); err != nil {
		return nil, err
	}

	articles, err := b.source.ListArticles(ctx, b.site.Owner, b.site.Repo, b.site.Label, articlesPerPage)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	b.logger.Info("articles listed", "repo", b.site.Owner+"/"+b.site.Repo, "label", b.site.Label, "count", len(articles))

	reports := make([]*model.HydrationReport, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, article := range articles {
		g.Go(func() error {
			report, err := b.writeArticle(gctx, outDir, article)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var index bytes.Buffer
	if err := b.pages.WriteIndexPage(ctx, &index, b.site, articles); err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "index.html"), index.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}

	for name, data := range b.assets {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("writing asset %s: %w", name, err)
		}
	}

	b.logger.Info("site built", "out_dir", outDir, "articles", len(articles))

	return &BuildResult{OutDir: outDir, Articles: len(articles), Reports: reports}, nil
}

func (b *SiteBuilder) writeArticle(ctx context.Context, outDir string, article model.Article) (*model.HydrationReport, error) {
	var page bytes.Buffer
	if err := b.pages.WriteArticlePage(ctx, &page, article, b.site); err != nil {
		return nil, fmt.Errorf("rendering article #%d: %w", article.Number, err)
	}

	var hydrated bytes.Buffer
	report, err := b.widgets.HydrateHTML(ctx, &page, &hydrated, article.FileName(), false)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(outDir, article.FileName()), hydrated.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing article #%d: %w", article.Number, err)
	}

	return report, nil
}

// resetDir removes dir if it exists and recreates it empty.
func resetDir(dir string) error {
	clean := filepath.Clean(dir)
	if clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("refusing to reset output directory %q", dir)
	}

	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("removing %s: %w", clean, err)
	}
	if err := os.MkdirAll(clean, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", clean, err)
	}
	return nil
}
