package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/tinyutterances/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/tinyutterances/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/tinyutterances/internal/adapter/driving/web"
	"github.com/ericfisherdev/tinyutterances/internal/application"
	"github.com/ericfisherdev/tinyutterances/internal/config"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	github   *githubadapter.Client
	renderer *web.Renderer
	store    driven.DiagnosticStore
	widgets  *application.WidgetService

	closers []func() error
}

// newApp loads configuration, applies persistent flag overrides and wires the
// adapters. Callers must call close when done.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	a.github, err = githubadapter.NewClient(githubadapter.Options{
		Token:     cfg.GitHubToken,
		BaseURL:   cfg.APIBaseURL,
		HTTPCache: cfg.HTTPCache,
	})
	if err != nil {
		return nil, fmt.Errorf("creating github client: %w", err)
	}
	if cfg.GitHubToken == "" {
		logger.Warn("no github token configured, requests are limited to 60 per hour")
	}

	a.renderer = web.NewRenderer(
		web.WithLocation(cfg.Location),
		web.WithStrictSanitizing(cfg.SanitizeBodies),
	)

	if cfg.HasDiagnosticsStore() {
		if err := a.openStore(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	a.widgets = application.NewWidgetService(a.github, a.renderer, a.store, cfg.FetchConcurrency, logger)

	return a, nil
}

// openStore opens the diagnostics database and runs migrations.
func (a *app) openStore(ctx context.Context) error {
	db, err := sqliteadapter.NewDB(ctx, a.cfg.DBPath)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)

	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	a.logger.Info("diagnostics store ready", "path", db.Path(), "schema_version", version)

	a.store = sqliteadapter.NewDiagnosticRepo(db)
	return nil
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Error("error closing resource", "error", err)
		}
	}
	a.closers = nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", v, err)
		}
	}

	if flags.Changed("log-format") {
		v, _ := flags.GetString("log-format")
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			return fmt.Errorf("invalid --log-format %q: must be text or json", v)
		}
		cfg.LogFormat = v
	}

	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}

	return nil
}

// newLogger builds the process logger. Logs always go to w (stderr) so that
// hydrated documents written to stdout stay clean.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
