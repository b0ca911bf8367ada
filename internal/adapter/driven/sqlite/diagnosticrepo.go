package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/tinyutterances/internal/domain/model"
	"github.com/ericfisherdev/tinyutterances/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DiagnosticStore = (*DiagnosticRepo)(nil)

// DiagnosticRepo is the SQLite implementation of the DiagnosticStore port interface.
type DiagnosticRepo struct {
	db *DB
}

// NewDiagnosticRepo creates a new DiagnosticRepo backed by the given DB.
func NewDiagnosticRepo(db *DB) *DiagnosticRepo {
	return &DiagnosticRepo{db: db}
}

// SaveReport writes one row per container result in a single transaction.
// A report with no containers writes nothing.
func (r *DiagnosticRepo) SaveReport(ctx context.Context, report *model.HydrationReport) error {
	if len(report.Results) == 0 {
		return nil
	}

	const query = `
		INSERT INTO hydration_results (
			run_id, document, container_index, owner, repo, issue_number,
			state, comment_count, status_code, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := report.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save report %s: %w", report.RunID, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare save report: %w", err)
	}
	defer stmt.Close()

	for _, res := range report.Results {
		var errText string
		if res.Err != nil {
			errText = res.Err.Error()
		}

		_, err := stmt.ExecContext(ctx,
			report.RunID,
			report.Document,
			res.Index,
			res.Config.RepositoryOwner,
			res.Config.RepositoryName,
			res.Config.IssueNumber,
			string(res.State),
			res.CommentCount,
			model.StatusCodeOf(res.Err),
			errText,
			createdAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert result %d of run %s: %w", res.Index, report.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save report %s: %w", report.RunID, err)
	}

	return nil
}

// ListRecent returns the most recent container results, newest first.
func (r *DiagnosticRepo) ListRecent(ctx context.Context, limit int) ([]model.DiagnosticRecord, error) {
	const query = `
		SELECT id, run_id, document, container_index, owner, repo, issue_number,
		       state, comment_count, status_code, error, created_at
		FROM hydration_results
		ORDER BY id DESC
		LIMIT ?`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent results: %w", err)
	}
	defer rows.Close()

	records := []model.DiagnosticRecord{}
	for rows.Next() {
		var rec model.DiagnosticRecord
		var state, createdAt string

		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Document, &rec.ContainerIndex,
			&rec.Owner, &rec.Repo, &rec.IssueNumber,
			&state, &rec.CommentCount, &rec.StatusCode, &rec.Error, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		rec.State = model.ContainerState(state)
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return records, nil
}
