// Package store persists evaluation runs and their audited artifacts to
// Postgres, so bundle tags can be compared across runs and machines.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/skylift/rotoreval/internal/artifact"
)

const schema = `
CREATE TABLE IF NOT EXISTS eval_runs (
	run_id       TEXT PRIMARY KEY,
	bundle_audit TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS eval_artifacts (
	run_id    TEXT NOT NULL REFERENCES eval_runs(run_id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	schema    TEXT NOT NULL,
	hash_hex  TEXT NOT NULL,
	tag       TEXT NOT NULL,
	content   TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// ArtifactRecord is one persisted artifact row.
type ArtifactRecord struct {
	RunID   string `db:"run_id"`
	Name    string `db:"name"`
	Schema  string `db:"schema"`
	HashHex string `db:"hash_hex"`
	Tag     string `db:"tag"`
	Content string `db:"content"`
}

// RunRecord is one persisted run row.
type RunRecord struct {
	RunID       string    `db:"run_id"`
	BundleAudit string    `db:"bundle_audit"`
	CreatedAt   time.Time `db:"created_at"`
}

// Store wraps the database handle.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to artifact store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (used by tests).
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate artifact store: %w", err)
	}
	return nil
}

// SaveRun persists a run and its artifact set in one transaction.
func (s *Store) SaveRun(ctx context.Context, runID string, bundleAudit artifact.Audit, artifacts []artifact.Tagged) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO eval_runs (run_id, bundle_audit) VALUES ($1, $2)`,
		runID, bundleAudit.Tag); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	for _, a := range artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO eval_artifacts (run_id, name, schema, hash_hex, tag, content)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, a.Name, a.Audit.Schema, a.Audit.HashHex, a.Audit.Tag, a.Content); err != nil {
			return fmt.Errorf("failed to insert artifact %s/%s: %w", runID, a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}
	log.Info().Str("run_id", runID).Int("artifacts", len(artifacts)).Msg("run persisted")
	return nil
}

// GetArtifact fetches one artifact by run and name.
func (s *Store) GetArtifact(ctx context.Context, runID, name string) (ArtifactRecord, error) {
	var rec ArtifactRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT run_id, name, schema, hash_hex, tag, content
		 FROM eval_artifacts WHERE run_id = $1 AND name = $2`, runID, name)
	if err != nil {
		return ArtifactRecord{}, fmt.Errorf("failed to load artifact %s/%s: %w", runID, name, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunRecord
	err := s.db.SelectContext(ctx, &runs,
		`SELECT run_id, bundle_audit, created_at FROM eval_runs
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
