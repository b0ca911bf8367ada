package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// upstreamErrorResponse is returned when GitHub could not serve a widget.
// UpstreamStatus is 0 when no HTTP response was received.
type upstreamErrorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status"`
}

// RunResponse is the JSON representation of one recorded container outcome.
type RunResponse struct {
	RunID          string `json:"run_id"`
	Document       string `json:"document"`
	ContainerIndex int    `json:"container_index"`
	Repository     string `json:"repository"`
	IssueNumber    int    `json:"issue_number"`
	State          string `json:"state"`
	CommentCount   int    `json:"comment_count"`
	StatusCode     int    `json:"status_code,omitempty"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRunResponse converts a DiagnosticRecord to its JSON representation.
func toRunResponse(rec model.DiagnosticRecord) RunResponse {
	repository := rec.Owner + "/" + rec.Repo
	if rec.Owner == "" && rec.Repo == "" {
		repository = ""
	}

	return RunResponse{
		RunID:          rec.RunID,
		Document:       rec.Document,
		ContainerIndex: rec.ContainerIndex,
		Repository:     repository,
		IssueNumber:    rec.IssueNumber,
		State:          string(rec.State),
		CommentCount:   rec.CommentCount,
		StatusCode:     rec.StatusCode,
		Error:          rec.Error,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
