package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"festsync/internal/services"
)

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunFailed  = "failed"
)

// Run is one ingest_runs row.
type Run struct {
	ID         string
	Source     string
	Locale     string
	Status     string
	StartedAt  time.Time
	EndedAt    *time.Time
	ParamsJSON string
	StatsJSON  string
	ErrorText  string
}

// StartRun inserts a run in the running state. params is stored as JSON.
func (s *Store) StartRun(ctx context.Context, id, source, locale string, params any) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO ingest_runs (run_id, source, locale, status, started_at, params_json)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, source, locale, RunRunning, s.timestamp(), string(encoded),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run successful and stores its stats as JSON.
func (s *Store) FinishRun(ctx context.Context, id string, endedAt time.Time, stats any) error {
	encoded, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode run stats: %w", err)
	}
	return s.endRun(ctx, id, RunSuccess,
		`UPDATE ingest_runs SET status = ?, ended_at = ?, stats_json = ? WHERE run_id = ?`,
		RunSuccess, formatTime(endedAt), string(encoded), id)
}

// FailRun marks a run failed with the given message.
func (s *Store) FailRun(ctx context.Context, id string, endedAt time.Time, message string) error {
	return s.endRun(ctx, id, RunFailed,
		`UPDATE ingest_runs SET status = ?, ended_at = ?, error_text = ? WHERE run_id = ?`,
		RunFailed, formatTime(endedAt), message, id)
}

func (s *Store) endRun(ctx context.Context, id, status, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark run %s: %w", status, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "end run", "unknown run "+id, nil)
	}
	return nil
}

const runColumns = "run_id, source, locale, status, started_at, ended_at, params_json, stats_json, error_text"

// GetRun loads a run by id. It returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.queryRow(ctx, `SELECT `+runColumns+` FROM ingest_runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns lists the most recently started runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.query(ctx, `SELECT `+runColumns+` FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run       Run
		started   string
		ended     sql.NullString
		params    sql.NullString
		stats     sql.NullString
		errorText sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Source, &run.Locale, &run.Status, &started, &ended, &params, &stats, &errorText); err != nil {
		return nil, err
	}
	if t, err := parseTimeString(started); err == nil {
		run.StartedAt = t
	}
	if ended.Valid {
		if t, err := parseTimeString(ended.String); err == nil {
			run.EndedAt = &t
		}
	}
	run.ParamsJSON = params.String
	run.StatsJSON = stats.String
	run.ErrorText = errorText.String
	return &run, nil
}
