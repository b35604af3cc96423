// Package history records completed analysis runs locally so they can be
// reviewed offline.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// RunKind distinguishes bias analyses from security scans.
type RunKind string

const (
	// RunKindBias is a bias/fairness analysis.
	RunKindBias RunKind = "bias"
	// RunKindSecurity is a security scan.
	RunKindSecurity RunKind = "security"
)

// Run is one recorded analysis run.
type Run struct {
	ID        uuid.UUID `json:"id"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Kind      RunKind   `json:"kind"`
	ModelID   string    `json:"model_id"`
	DatasetID string    `json:"dataset_id,omitempty"`
	Status    string    `json:"status"`
	Score     float64   `json:"score"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists runs in a SQLite database under the config directory.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore opens (creating if needed) the history database in configDir.
func NewStore(configDir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	dbPath := filepath.Join(configDir, "history.db")
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "history_store").Logger(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	s.logger.Debug().Str("path", dbPath).Msg("history database opened")
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			remote_id TEXT,
			kind TEXT NOT NULL,
			model_id TEXT NOT NULL,
			dataset_id TEXT,
			status TEXT NOT NULL,
			score REAL NOT NULL DEFAULT 0,
			summary TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_runs_model_id ON runs(model_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a completed run. A zero ID is assigned one.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, remote_id, kind, model_id, dataset_id, status, score, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.RemoteID, string(run.Kind), run.ModelID, run.DatasetID,
		run.Status, run.Score, run.Summary, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. A limit of 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, remote_id, kind, model_id, dataset_id, status, score, summary, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListByModel returns recent runs for one model, newest first.
func (s *Store) ListByModel(ctx context.Context, modelID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, remote_id, kind, model_id, dataset_id, status, score, summary, created_at
		FROM runs WHERE model_id = ? ORDER BY created_at DESC LIMIT ?`, modelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune removes runs older than the given age and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		run                          Run
		id, createdAt                string
		remoteID, datasetID, summary sql.NullString
	)
	if err := rows.Scan(&id, &remoteID, (*string)(&run.Kind), &run.ModelID, &datasetID,
		&run.Status, &run.Score, &summary, &createdAt); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	run.ID = parsed
	run.RemoteID = remoteID.String
	run.DatasetID = datasetID.String
	run.Summary = summary.String

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse run timestamp: %w", err)
	}
	run.CreatedAt = ts

	return &run, nil
}
