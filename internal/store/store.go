// Package store persists analysis history in SQLite. The engine itself is
// stateless; the store is a collaborator of the CLI and API layers only.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/circuitlens/circuitlens/core/engine"
	"github.com/circuitlens/circuitlens/core/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id             TEXT PRIMARY KEY,
    language       TEXT NOT NULL,
    source_hash    TEXT NOT NULL,
    classification TEXT NOT NULL,
    confidence     REAL NOT NULL,
    metrics        TEXT,
    created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

// Record is one stored analysis.
type Record struct {
	ID             string          `json:"id"`
	Language       string          `json:"language"`
	SourceHash     string          `json:"sourceHash"`
	Classification string          `json:"classification"`
	Confidence     float64         `json:"confidence"`
	Metrics        json.RawMessage `json:"metrics,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Store is an analysis-history database. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history db")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate history db")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a completed analysis and returns its id.
func (s *Store) Save(ctx context.Context, report *engine.Report) (string, error) {
	var metrics []byte
	if report.Complexity != nil {
		var err error
		metrics, err = json.Marshal(report.Complexity)
		if err != nil {
			return "", errors.Wrap(err, "encode metrics")
		}
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, language, source_hash, classification, confidence, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, report.Language, report.SourceHash, report.Classification,
		report.Confidence, nullableText(metrics), time.Now().UTC())
	if err != nil {
		return "", errors.Wrap(err, "insert analysis")
	}
	return id, nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, language, source_hash, classification, confidence, metrics, created_at
		FROM analyses ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, language, source_hash, classification, confidence, metrics, created_at
		FROM analyses WHERE id = ?`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query analysis")
	}
	defer rows.Close()
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sql.ErrNoRows
	}
	return &records[0], nil
}

// Count returns the total number of stored analyses.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n)
	return n, errors.Wrap(err, "count analyses")
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		var metrics sql.NullString
		if err := rows.Scan(&r.ID, &r.Language, &r.SourceHash, &r.Classification,
			&r.Confidence, &metrics, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan analysis")
		}
		if metrics.Valid && metrics.String != "" {
			r.Metrics = json.RawMessage(metrics.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullableText(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
