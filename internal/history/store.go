// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local record of finished conversions in SQLite.
// Only item metadata is stored; image content never enters the database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/heicconv/pkg/types"
)

// DefaultLimit is used by Recent when limit is not positive.
const DefaultLimit = 20

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store records terminal queue items.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			submitted_at TEXT NOT NULL,
			started_at TEXT,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_finished_at ON conversions(finished_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a completed or failed item. Recording the same id again
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, item types.QueueItem) error {
	if !item.Status.Terminal() {
		return fmt.Errorf("recording %s: status %s is not terminal", item.ID, item.Status)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO conversions
			(id, name, size_bytes, status, error_kind, error_message, submitted_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.SizeBytes, string(item.Status),
		string(item.ErrorKind), item.ErrorMessage,
		formatTime(item.SubmittedAt), formatTime(item.StartedAt), formatTime(item.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", item.ID, err)
	}
	return nil
}

// Recent returns up to limit records, most recently finished first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.QueueItem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, size_bytes, status, error_kind, error_message, submitted_at, started_at, finished_at
		FROM conversions ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var items []types.QueueItem
	for rows.Next() {
		var (
			it                  types.QueueItem
			status              string
			kind, msg, started  sql.NullString
			submitted, finished string
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.SizeBytes, &status, &kind, &msg,
			&submitted, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		it.Status = types.Status(status)
		it.ErrorKind = types.ErrorKind(kind.String)
		it.ErrorMessage = msg.String
		it.SubmittedAt = parseTime(submitted)
		it.StartedAt = parseTime(started.String)
		it.FinishedAt = parseTime(finished)
		if it.Status == types.StatusCompleted {
			it.Progress = 100
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Counts returns the number of recorded items per status.
func (s *Store) Counts(ctx context.Context) (map[types.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM conversions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting history: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.Status(status)] = n
	}
	return counts, rows.Err()
}

// Prune deletes records that finished before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE finished_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
