// Package store keeps a local SQLite log of executed commands.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"zentaohelper/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_history (
	id          TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	intent      TEXT NOT NULL,
	entities    TEXT NOT NULL DEFAULT '{}',
	success     INTEGER NOT NULL,
	error_code  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_command_history_created ON command_history(created_at);
`

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Turn is one executed utterance.
type Turn struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Intent    string          `json:"intent"`
	Entities  json.RawMessage `json:"entities,omitempty"`
	Success   bool            `json:"success"`
	ErrorCode string          `json:"error_code,omitempty"`
	Duration  time.Duration   `json:"duration"`
	CreatedAt time.Time       `json:"created_at"`
}

// History is the command log.
type History struct {
	db      *sql.DB
	mu      sync.Mutex
	path    string
	maxRows int
	now     func() time.Time
}

// OpenHistory opens (creating if needed) the database at path. maxRows > 0
// caps the table, dropping the oldest rows after each insert. ":memory:"
// gives a throwaway database.
func OpenHistory(path string, maxRows int) (*History, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenHistory")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("history database ready at %s", path)
	return &History{db: db, path: path, maxRows: maxRows, now: time.Now}, nil
}

// Record inserts t, filling in the id and timestamp when empty.
func (h *History) Record(ctx context.Context, t Turn) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = h.now()
	}
	entities := string(t.Entities)
	if entities == "" {
		entities = "{}"
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO command_history (id, text, intent, entities, success, error_code, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Text, t.Intent, entities, boolToInt(t.Success), t.ErrorCode,
		t.Duration.Milliseconds(), t.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("record history: %w", err)
	}

	if h.maxRows > 0 {
		_, err := h.db.ExecContext(ctx,
			`DELETE FROM command_history WHERE id NOT IN (
				SELECT id FROM command_history ORDER BY created_at DESC LIMIT ?)`, h.maxRows)
		if err != nil {
			logging.StoreWarn("prune history: %v", err)
		}
	}
	logging.StoreDebug("recorded %s intent=%s success=%t", t.ID, t.Intent, t.Success)
	return t.ID, nil
}

// Recent returns up to limit turns, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, text, intent, entities, success, error_code, duration_ms, created_at
		 FROM command_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t          Turn
			entities   string
			success    int
			durationMS int64
			created    string
		)
		if err := rows.Scan(&t.ID, &t.Text, &t.Intent, &entities, &success, &t.ErrorCode, &durationMS, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		t.Entities = json.RawMessage(entities)
		t.Success = success != 0
		t.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(timeLayout, created); err == nil {
			t.CreatedAt = ts
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close closes the database.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
