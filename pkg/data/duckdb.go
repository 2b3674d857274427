package data

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// InitDuckDB opens (or creates) the local database and ensures the schema.
func InitDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS sync_runs_id START 1`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id BIGINT PRIMARY KEY DEFAULT nextval('sync_runs_id'),
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			total INTEGER NOT NULL,
			errors INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS progress (
			title VARCHAR PRIMARY KEY,
			chapter VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Repository stores sync-run history and the last-seen progress per title.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a repository at the given database path.
func NewRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// SaveRun records a completed sync pass.
func (r *Repository) SaveRun(run *SyncRun) error {
	_, err := r.db.Exec(
		`INSERT INTO sync_runs (started_at, finished_at, total, errors) VALUES (?, ?, ?, ?)`,
		run.StartedAt, run.FinishedAt, run.Total, run.Errors,
	)
	return err
}

// LastRun returns the most recent sync pass, or nil when none has happened.
func (r *Repository) LastRun() (*SyncRun, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, finished_at, total, errors FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`,
	)
	var run SyncRun
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Total, &run.Errors); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// SaveProgress upserts the last-seen chapter for one title.
func (r *Repository) SaveProgress(p *Progress) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO progress (title, chapter, status, updated_at) VALUES (?, ?, ?, ?)`,
		p.Title, p.Chapter, p.Status, p.UpdatedAt,
	)
	return err
}

// ListProgress returns all recorded progress rows ordered by title.
func (r *Repository) ListProgress() ([]*Progress, error) {
	rows, err := r.db.Query(`SELECT title, chapter, status, updated_at FROM progress ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Progress
	for rows.Next() {
		var p Progress
		if err := rows.Scan(&p.Title, &p.Chapter, &p.Status, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}
