package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shopkeep-go/internal/database/migrations"
	"shopkeep-go/internal/sk"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps preferences in app_prefs.db.
type SQLiteStore struct {
	db    *sql.DB
	clock sk.Clock
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens the preferences database at path and applies
// pending migrations.
func OpenSQLiteStore(path string, clock sk.Clock) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating preferences directory: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening preferences database: %w", err)
	}
	if err := migrations.MigrateUp(db, migrations.Prefs); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating preferences database: %w", err)
	}
	return NewSQLiteStore(db, clock), nil
}

// NewSQLiteStore wraps an already migrated connection.
func NewSQLiteStore(db *sql.DB, clock sk.Clock) *SQLiteStore {
	if clock == nil {
		clock = sk.RealClock{}
	}
	return &SQLiteStore{db: db, clock: clock}
}

// Get returns the value stored under namespace/key, or "", false.
func (s *SQLiteStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s[%s]: %w", namespace, key, err)
	}
	return value, true, nil
}

// Set stores value under namespace/key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, namespace, key, value, formatTime(s.clock.Now()))
	if err != nil {
		return fmt.Errorf("failed to set %s[%s]: %w", namespace, key, err)
	}
	return nil
}

// Delete removes namespace/key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLiteStore) SaveIdentity(ctx context.Context, id sk.Identity) error {
	return s.Set(ctx, PrefsNamespace, UserEmailKey, id.String())
}

func (s *SQLiteStore) Identity(ctx context.Context) (sk.Identity, bool, error) {
	v, ok, err := s.Get(ctx, PrefsNamespace, UserEmailKey)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return sk.Identity(v), true, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.Delete(ctx, PrefsNamespace, UserEmailKey)
}

func (s *SQLiteStore) StartOperation(ctx context.Context, operation, account string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (operation, account, started_at, status) VALUES (?, ?, ?, ?)`,
		operation, account, formatTime(at), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to record operation %s: %w", operation, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read operation id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) FinishOperation(ctx context.Context, id int64, status, detail string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE operations SET finished_at = ?, status = ?, detail = ? WHERE id = ?`,
		formatTime(at), status, detail, id)
	if err != nil {
		return fmt.Errorf("failed to finish operation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish operation %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("operation %d not found", id)
	}
	return nil
}

func (s *SQLiteStore) ListOperations(ctx context.Context, limit int) ([]*Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, account, started_at, finished_at, status, detail
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		var started string
		var finished sql.NullString
		if err := rows.Scan(&op.ID, &op.Operation, &op.Account, &started, &finished, &op.Status, &op.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		if op.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation rows: %w", err)
	}
	return ops, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
