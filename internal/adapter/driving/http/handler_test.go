package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	httphandler "github.com/ericfisherdev/tinyutterances/internal/adapter/driving/http"
	"github.com/ericfisherdev/tinyutterances/internal/adapter/driving/web"
	"github.com/ericfisherdev/tinyutterances/internal/application"
	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockFetcher struct {
	comments []model.Comment
	err      error
}

func (m *mockFetcher) FetchComments(_ context.Context, _, _ string, _, _ int) ([]model.Comment, error) {
	return m.comments, m.err
}

type mockDiagnosticStore struct {
	records   []model.DiagnosticRecord
	err       error
	saved     int
	lastLimit int
}

func (m *mockDiagnosticStore) SaveReport(_ context.Context, _ *model.HydrationReport) error {
	m.saved++
	return nil
}

func (m *mockDiagnosticStore) ListRecent(_ context.Context, limit int) ([]model.DiagnosticRecord, error) {
	m.lastLimit = limit
	return m.records, m.err
}

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testComment() model.Comment {
	return model.Comment{
		ID:               1,
		AuthorLogin:      "alice",
		AuthorAvatarURL:  "https://avatars.example/alice",
		AuthorProfileURL: "https://github.com/alice",
		HTMLURL:          "https://github.com/acme/widgets/issues/42#issuecomment-1",
		BodyHTML:         model.TrustAPIHTML("<p>hi</p>"),
		CreatedAt:        testTime,
	}
}

func setupMux(fetcher *mockFetcher, store driven.DiagnosticStore, limiter *rate.Limiter) http.Handler {
	renderer := web.NewRenderer(web.WithLocation(time.UTC))
	widgets := application.NewWidgetService(fetcher, renderer, store, 0, testLogger())
	h := httphandler.NewHandler(widgets, store, testLogger())
	return httphandler.NewServeMux(h, testLogger(), limiter)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

const testContainer = `<div class="tiny-utterances" data-repo-owner="acme" data-repo-name="widgets" data-issue-number="42" data-max-comments="5"></div>`

// --- Tests ---

func TestHydrate(t *testing.T) {
	mux := setupMux(&mockFetcher{comments: []model.Comment{testComment()}}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hydrate?document=post.html",
		strings.NewReader(`<html><body>`+testContainer+`</body></html>`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Hydration-Rendered"))
	assert.Equal(t, "0", rec.Header().Get("X-Hydration-Failed"))
	assert.Equal(t, "0", rec.Header().Get("X-Hydration-Superseded"))
	assert.NotEmpty(t, rec.Header().Get("X-Hydration-Run-Id"))
	assert.Contains(t, rec.Body.String(), `<div class="tu-comment">`)
	assert.Contains(t, rec.Body.String(), "Join the discussion on GitHub")
}

func TestHydrate_Fragment(t *testing.T) {
	mux := setupMux(&mockFetcher{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hydrate?fragment=true", strings.NewReader(testContainer))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`<div class="tiny-utterances" data-repo-owner="acme" data-repo-name="widgets" data-issue-number="42" data-max-comments="5">`+
			`<a class="tu-button" href="https://github.com/acme/widgets/issues/42#comment-composer-heading">Be the first to comment on GitHub</a></div>`,
		rec.Body.String(),
	)
}

func TestHydrate_FailedContainerStillOK(t *testing.T) {
	mux := setupMux(&mockFetcher{err: &model.RemoteFetchError{StatusCode: http.StatusNotFound}}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hydrate?fragment=true",
		strings.NewReader(`<div class="tiny-utterances" data-repo-owner="acme" data-repo-name="widgets" data-issue-number="42" data-max-comments="5">loading</div>`))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Hydration-Failed"))
	assert.Contains(t, rec.Body.String(), ">loading</div>")
}

func TestHydrate_TooLarge(t *testing.T) {
	mux := setupMux(&mockFetcher{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hydrate",
		strings.NewReader("<p>"+strings.Repeat("a", 6<<20)+"</p>"))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetWidget(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		fetcher    *mockFetcher
		wantStatus int
		wantBody   string
		wantError  string
		upstream   float64
	}{
		{
			name:       "empty issue renders the button",
			path:       "/api/v1/widgets/acme/widgets/42?max=5",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusOK,
			wantBody:   `<a class="tu-button" href="https://github.com/acme/widgets/issues/42#comment-composer-heading">Be the first to comment on GitHub</a>`,
		},
		{
			name:       "default max",
			path:       "/api/v1/widgets/acme/widgets/42",
			fetcher:    &mockFetcher{comments: []model.Comment{testComment()}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid number",
			path:       "/api/v1/widgets/acme/widgets/abc",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid issue number",
		},
		{
			name:       "invalid max",
			path:       "/api/v1/widgets/acme/widgets/42?max=0",
			fetcher:    &mockFetcher{},
			wantStatus: http.StatusBadRequest,
			wantError:  "max must be a positive integer",
		},
		{
			name:       "upstream status error",
			path:       "/api/v1/widgets/acme/widgets/42",
			fetcher:    &mockFetcher{err: &model.RemoteFetchError{StatusCode: http.StatusForbidden}},
			wantStatus: http.StatusBadGateway,
			wantError:  "failed to fetch comments",
			upstream:   http.StatusForbidden,
		},
		{
			name:       "transport error",
			path:       "/api/v1/widgets/acme/widgets/42",
			fetcher:    &mockFetcher{err: &model.TransportError{Err: errors.New("connection refused")}},
			wantStatus: http.StatusBadGateway,
			wantError:  "failed to fetch comments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(tt.fetcher, nil, nil)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantError != "" {
				var resp map[string]any
				decodeJSON(t, rec, &resp)
				assert.Equal(t, tt.wantError, resp["error"])
				if tt.wantStatus == http.StatusBadGateway {
					assert.Equal(t, tt.upstream, resp["upstream_status"])
				}
				return
			}

			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestGetWidget_RecordsOutcome(t *testing.T) {
	store := &mockDiagnosticStore{}
	mux := setupMux(&mockFetcher{}, store, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/widgets/acme/widgets/42", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.saved)
}

func TestRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	mux := setupMux(&mockFetcher{}, nil, limiter)

	first := httptest.NewRecorder()
	mux.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/widgets/acme/widgets/42", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	mux.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/widgets/acme/widgets/42", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Health is never throttled.
	health := httptest.NewRecorder()
	mux.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestListRuns(t *testing.T) {
	store := &mockDiagnosticStore{records: []model.DiagnosticRecord{
		{
			ID:             2,
			RunID:          "run-2",
			Document:       "post.html",
			ContainerIndex: 0,
			Owner:          "acme",
			Repo:           "widgets",
			IssueNumber:    42,
			State:          model.ContainerFailed,
			StatusCode:     404,
			Error:          "github returned status 404",
			CreatedAt:      testTime,
		},
		{
			ID:        1,
			RunID:     "run-1",
			Document:  "post.html",
			State:     model.ContainerSkipped,
			Error:     "repo-owner is required",
			CreatedAt: testTime,
		},
	}}
	mux := setupMux(&mockFetcher{}, store, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=10", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, store.lastLimit)

	var resp []httphandler.RunResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "run-2", resp[0].RunID)
	assert.Equal(t, "acme/widgets", resp[0].Repository)
	assert.Equal(t, "failed", resp[0].State)
	assert.Equal(t, 404, resp[0].StatusCode)
	assert.Equal(t, "2026-02-10T12:00:00Z", resp[0].CreatedAt)
	assert.Equal(t, "", resp[1].Repository)
	assert.Equal(t, "skipped", resp[1].State)
}

func TestListRuns_Errors(t *testing.T) {
	tests := []struct {
		name       string
		store      driven.DiagnosticStore
		path       string
		wantStatus int
	}{
		{"store not configured", nil, "/api/v1/runs", http.StatusServiceUnavailable},
		{"invalid limit", &mockDiagnosticStore{}, "/api/v1/runs?limit=-1", http.StatusBadRequest},
		{"store failure", &mockDiagnosticStore{err: errors.New("db closed")}, "/api/v1/runs", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(&mockFetcher{}, tt.store, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]any
			decodeJSON(t, rec, &resp)
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestListRuns_LimitCapped(t *testing.T) {
	store := &mockDiagnosticStore{}
	mux := setupMux(&mockFetcher{}, store, nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=100000", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, store.lastLimit)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestHealth(t *testing.T) {
	mux := setupMux(&mockFetcher{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["time"])
}

func TestRecoveryMiddleware(t *testing.T) {
	// A nil WidgetService makes the hydrate route panic.
	h := httphandler.NewHandler(nil, nil, testLogger())
	mux := httphandler.NewServeMux(h, testLogger(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hydrate", strings.NewReader("<p></p>"))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
