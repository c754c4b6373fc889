// Package runlog persists a record of every top-level workflow run to a
// local SQLite database, giving unattended sessions an auditable trail.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/milthm/autogarden/internal/clock"
)

// Run is one recorded workflow execution.
type Run struct {
	ID        string
	Workflow  string
	Params    map[string]interface{}
	StartedAt time.Time
	EndedAt   time.Time
	Succeeded bool
}

// Service stores run records. A nil *Service is a valid no-op store so
// callers may leave logging unconfigured.
type Service struct {
	db *sql.DB
}

// New opens (or creates) the run log database at the given DSN.
func New(dsn string) (*Service, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %v: %w", dsn, err)
	}
	ret := &Service{db: db}
	if err := ret.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ret, nil
}

func (s *Service) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			params TEXT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			succeeded INTEGER NOT NULL DEFAULT 0
		);`,
	)
	return err
}

// Begin records the start of a run.
func (s *Service) Begin(ctx context.Context, id, workflow string, params map[string]interface{}) error {
	if s == nil {
		return nil
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow, params, started_at, succeeded)
		VALUES (?, ?, ?, ?, 0)`,
		id, workflow, string(encoded), clock.Now().UTC(),
	)
	return err
}

// Finish records the outcome of a run.
func (s *Service) Finish(ctx context.Context, id string, succeeded bool) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, succeeded = ? WHERE id = ?`,
		clock.Now().UTC(), succeeded, id,
	)
	return err
}

// List returns the most recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Run, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow, params, started_at, ended_at, succeeded
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ret []*Run
	for rows.Next() {
		run := &Run{}
		var params sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Workflow, &params, &run.StartedAt, &endedAt, &run.Succeeded); err != nil {
			return nil, err
		}
		if params.Valid && params.String != "" {
			if err := json.Unmarshal([]byte(params.String), &run.Params); err != nil {
				return nil, fmt.Errorf("failed to decode params for run %v: %w", run.ID, err)
			}
		}
		if endedAt.Valid {
			run.EndedAt = endedAt.Time
		}
		ret = append(ret, run)
	}
	return ret, rows.Err()
}

// Close releases the underlying database.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
