package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const historySchemaVersion = 1

// History is the sqlite index of completed work. It exists for the
// history command only: the processor appends to it best-effort at
// archive time, and nothing on the processing path ever reads it.
type History struct {
	db *sql.DB
}

// HistoryRecord describes one completed execution.
type HistoryRecord struct {
	Key          string
	ArchivedName string
	CompletedAt  time.Time
	LogPath      string
}

// OpenHistory creates or opens the history database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// repeatedly.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: connect: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record appends one completed execution to the index.
func (h *History) Record(ctx context.Context, rec HistoryRecord) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO history (key, archived_name, completed_at, log_path)
		VALUES (?, ?, ?, ?)
	`,
		rec.Key,
		rec.ArchivedName,
		rec.CompletedAt.UTC().Format(time.RFC3339Nano),
		rec.LogPath,
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", rec.Key, err)
	}
	return nil
}

// Recent returns the most recently completed executions, newest first.
// limit <= 0 means no limit.
func (h *History) Recent(ctx context.Context, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = -1 // sqlite: LIMIT -1 disables the limit
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT key, archived_name, completed_at, log_path
		FROM history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var recs []HistoryRecord
	for rows.Next() {
		var (
			rec   HistoryRecord
			stamp string
		)
		if err := rows.Scan(&rec.Key, &rec.ArchivedName, &stamp, &rec.LogPath); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		rec.CompletedAt, err = time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return nil, fmt.Errorf("history: bad completed_at %q: %w", stamp, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return recs, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", historySchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
