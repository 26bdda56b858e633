// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-service/pkg/types"
)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "data/results.db"

// SQLite stores results in a local database file. Expired rows are hidden
// on read and removed by Purge, which also runs when the file is opened.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if _, err := s.Purge(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS results (
			task_id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_expires_at ON results(expires_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the live result for id.
func (s *SQLite) Get(ctx context.Context, id string) (types.ResearchResult, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM results WHERE task_id = ? AND expires_at > ?`,
		id, s.now().UnixNano(),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResearchResult{}, ErrNotFound
	}
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("querying result %s: %w", id, err)
	}

	var res types.ResearchResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return types.ResearchResult{}, fmt.Errorf("decoding cached result %s: %w", id, err)
	}
	return res, nil
}

// Set inserts or replaces the result for id.
func (s *SQLite) Set(ctx context.Context, id string, result types.ResearchResult, ttl time.Duration) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", id, err)
	}
	expires := s.now().Add(ttlOrDefault(ttl)).UnixNano()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (task_id, body, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(task_id) DO UPDATE SET body = excluded.body, expires_at = excluded.expires_at`,
		id, string(body), expires,
	)
	if err != nil {
		return fmt.Errorf("storing result %s: %w", id, err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging results: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (s *SQLite) Close() error { return s.db.Close() }
