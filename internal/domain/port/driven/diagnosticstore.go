package driven

import (
	"context"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
)

// DiagnosticStore persists per-container hydration outcomes.
type DiagnosticStore interface {
	SaveReport(ctx context.Context, report *model.HydrationReport) error
	ListRecent(ctx context.Context, limit int) ([]model.DiagnosticRecord, error)
}
