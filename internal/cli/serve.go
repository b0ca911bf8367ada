package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	httphandler "github.com/ericfisherdev/tinyutterances/internal/adapter/driving/http"
	"github.com/ericfisherdev/tinyutterances/internal/adapter/driving/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the hydration API over HTTP",
	Long: `Serve the hydration REST API:

  POST /api/v1/hydrate                           hydrate the posted HTML document
  GET  /api/v1/widgets/{owner}/{repo}/{number}   render one widget fragment
  GET  /api/v1/runs                              recent hydration outcomes
  GET  /api/v1/health                            health check

The widget stylesheet is served under /static/.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides TINYUTTERANCES_LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("addr") {
		a.cfg.ListenAddr, _ = cmd.Flags().GetString("addr")
	}

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.serveHandler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	a.logger.Info("tinyutterances started",
		"listen_addr", a.cfg.ListenAddr,
		"rate_limit", a.cfg.RateLimit,
		"rate_burst", a.cfg.RateBurst,
		"diagnostics", a.cfg.HasDiagnosticsStore(),
	)

	// Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	a.logger.Info("shutting down")

	// Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// serveHandler wires the REST API and the static assets behind the request
// middleware. GitHub-bound routes share one token bucket.
func (a *app) serveHandler() http.Handler {
	limiter := rate.NewLimiter(rate.Limit(a.cfg.RateLimit), a.cfg.RateBurst)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(a.widgets, a.store, a.logger), limiter)
	web.RegisterRoutes(mux)

	return httphandler.ApplyMiddleware(mux, a.logger)
}
