// Package offline provides the durable local store used while the
// application is disconnected: a queue of mutation intents captured when a
// write fails due to connectivity, and a separate TTL cache namespace for
// non-authoritative derived data.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Action types mirror the HTTP method of the deferred mutation.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

const DefaultMaxRetries = 5

// Action is a mutation intent captured while offline. retry_count never
// exceeds max_retries; once the budget is spent the action is abandoned
// rather than retried forever.
type Action struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Endpoint   string          `json:"endpoint"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

const schema = `
CREATE TABLE IF NOT EXISTS offline_actions (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    data BLOB NOT NULL,
    timestamp INTEGER NOT NULL,
    retry_count INTEGER NOT NULL DEFAULT 0,
    max_retries INTEGER NOT NULL,
    seq INTEGER
);
CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    timestamp INTEGER NOT NULL,
    expires INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Queue is the durable offline store. Construct with Open and release with
// Close; there is no package-level instance.
type Queue struct {
	db *sql.DB
}

// Open opens (or creates) the store under dataDir. The database is opened
// with WAL mode and a single writer, which is all SQLite supports anyway.
func Open(dataDir string) (*Queue, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "offline.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Queue{db: db}, nil
}

// OpenInMemory opens a throwaway store, used by tests.
func OpenInMemory() (*Queue, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// StoreAction persists a mutation intent. The id, capture timestamp and zero
// retry count are assigned here; callers provide type, endpoint and data.
func (q *Queue) StoreAction(ctx context.Context, action Action) (Action, error) {
	action.ID = uuid.New().String()
	action.Timestamp = time.Now().UTC()
	action.RetryCount = 0
	if action.MaxRetries <= 0 {
		action.MaxRetries = DefaultMaxRetries
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return Action{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO offline_actions (id, type, endpoint, data, timestamp, retry_count, max_retries, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM offline_actions))`,
		action.ID, action.Type, action.Endpoint, []byte(action.Data),
		action.Timestamp.UnixMilli(), action.RetryCount, action.MaxRetries,
	)
	if err != nil {
		return Action{}, err
	}

	if err := tx.Commit(); err != nil {
		return Action{}, err
	}

	return action, nil
}

// Actions returns all pending actions in the order they were stored. Reading
// is non-destructive; replay removes actions individually once confirmed.
func (q *Queue) Actions(ctx context.Context) ([]Action, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, type, endpoint, data, timestamp, retry_count, max_retries
		 FROM offline_actions ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		var data []byte
		var ts int64
		if err := rows.Scan(&a.ID, &a.Type, &a.Endpoint, &data, &ts, &a.RetryCount, &a.MaxRetries); err != nil {
			continue
		}
		a.Data = json.RawMessage(data)
		a.Timestamp = time.UnixMilli(ts).UTC()
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// RemoveAction deletes an action by id. Removing an unknown id is a no-op.
func (q *Queue) RemoveAction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM offline_actions WHERE id = ?`, id)
	return err
}

// ActionCount returns the number of pending actions. The count drives a badge
// in the UI, so storage errors collapse to zero instead of propagating.
func (q *Queue) ActionCount(ctx context.Context) int {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_actions`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (q *Queue) incrementRetry(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE offline_actions SET retry_count = retry_count + 1 WHERE id = ?`, id)
	return err
}
