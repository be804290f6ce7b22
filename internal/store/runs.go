package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beevans/integrated-manager-for-lustre/internal/reconcile"
)

// Run is a recorded reconciliation pass.
type Run struct {
	ID        uuid.UUID         `json:"id"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Hosts     int               `json:"hosts"`
	Donors    int               `json:"donors"`
	Changed   []string          `json:"changed,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

type runDetails struct {
	Changed []string          `json:"changed,omitempty"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// NewRun summarizes a reconciliation report.
func NewRun(started time.Time, report *reconcile.Report) *Run {
	run := &Run{
		ID:        uuid.New(),
		StartedAt: started.UTC(),
		Duration:  report.Duration,
		Hosts:     len(report.Snapshots),
		Donors:    report.Donors,
		Changed:   report.Changed,
	}
	if len(report.Failed) > 0 {
		run.Failed = make(map[string]string, len(report.Failed))
		for _, f := range report.Failed {
			run.Failed[f.Host] = f.Err.Error()
		}
	}
	return run
}

// RecordRun stores run, assigning an ID if it has none.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	details, err := json.Marshal(runDetails{Changed: run.Changed, Failed: run.Failed})
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, started_at, duration_ms, hosts, donors, changed, failed, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID.String(), run.StartedAt.UTC(), run.Duration.Milliseconds(),
		run.Hosts, run.Donors, len(run.Changed), len(run.Failed), string(details))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, hosts, donors, details
		FROM reconcile_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run        Run
			id         string
			durationMS int64
			details    sql.NullString
		)
		if err := rows.Scan(&id, &run.StartedAt, &durationMS, &run.Hosts, &run.Donors, &details); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond

		if details.Valid {
			var d runDetails
			if err := json.Unmarshal([]byte(details.String), &d); err != nil {
				return nil, fmt.Errorf("invalid details for run %s: %w", id, err)
			}
			run.Changed = d.Changed
			run.Failed = d.Failed
		}

		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
