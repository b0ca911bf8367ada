package httphandler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/tinyutterances/internal/application"
	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

const (
	// maxDocumentBytes caps the size of documents accepted for hydration.
	maxDocumentBytes = 5 << 20

	defaultWidgetMax = 10
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	widgets *application.WidgetService
	store   driven.DiagnosticStore
	logger  *slog.Logger
}

// NewHandler creates a Handler. store may be nil, in which case the runs
// endpoint reports that diagnostics are disabled.
func NewHandler(
	widgets *application.WidgetService,
	store driven.DiagnosticStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		widgets: widgets,
		store:   store,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all API routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger, limiter *rate.Limiter) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h, limiter)
	return ApplyMiddleware(mux, logger)
}

// RegisterAPIRoutes registers the REST API on mux. Routes that reach GitHub are
// throttled by limiter; a nil limiter disables throttling.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler, limiter *rate.Limiter) {
	mux.Handle("POST /api/v1/hydrate", rateLimitMiddleware(limiter, http.HandlerFunc(h.Hydrate)))
	mux.Handle("GET /api/v1/widgets/{owner}/{repo}/{number}", rateLimitMiddleware(limiter, http.HandlerFunc(h.GetWidget)))
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ApplyMiddleware wraps next with recovery and request logging.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	return loggingMiddleware(logger, wrapped)
}

// Hydrate fills in every comments widget container of the posted HTML document
// and returns the result. Per-container failures never fail the request; they
// are summarized in the X-Hydration-* response headers.
func (h *Handler) Hydrate(w http.ResponseWriter, r *http.Request) {
	document := r.URL.Query().Get("document")
	if document == "" {
		document = "request"
	}
	fragment := r.URL.Query().Get("fragment") == "true"

	body := http.MaxBytesReader(w, r.Body, maxDocumentBytes)

	// Buffered so the report headers can be set before the body is written.
	var out bytes.Buffer
	report, err := h.widgets.HydrateHTML(r.Context(), body, &out, document, fragment)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		h.logger.Error("failed to hydrate document", "document", document, "error", err)
		writeError(w, http.StatusBadRequest, "invalid document")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Hydration-Run-Id", report.RunID)
	w.Header().Set("X-Hydration-Rendered", strconv.Itoa(report.Count(model.ContainerRendered)))
	w.Header().Set("X-Hydration-Failed", strconv.Itoa(report.Count(model.ContainerFailed)))
	w.Header().Set("X-Hydration-Skipped", strconv.Itoa(report.Count(model.ContainerSkipped)))
	w.Header().Set("X-Hydration-Superseded", strconv.Itoa(report.Count(model.ContainerSuperseded)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes())
}

// GetWidget renders the widget fragment for one issue. Unlike Hydrate, an
// upstream failure is reported to the caller as 502 and no fragment is returned.
func (h *Handler) GetWidget(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid issue number")
		return
	}

	maxComments := defaultWidgetMax
	if v := r.URL.Query().Get("max"); v != "" {
		maxComments, err = strconv.Atoi(v)
		if err != nil || maxComments <= 0 {
			writeError(w, http.StatusBadRequest, "max must be a positive integer")
			return
		}
	}

	cfg := model.WidgetConfig{
		RepositoryOwner: r.PathValue("owner"),
		RepositoryName:  r.PathValue("repo"),
		IssueNumber:     number,
		MaxComments:     maxComments,
	}

	markup, err := h.widgets.RenderFragment(r.Context(), cfg)
	if err != nil {
		var cfgErr *model.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, cfgErr.Error())
			return
		}
		writeJSON(w, http.StatusBadGateway, upstreamErrorResponse{
			Error:          "failed to fetch comments",
			UpstreamStatus: model.StatusCodeOf(err),
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}

// ListRuns returns the most recent per-container hydration outcomes.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "diagnostics store not configured")
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	records, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list hydration results", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRunResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
