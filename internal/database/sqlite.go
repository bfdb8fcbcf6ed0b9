package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"shopkeep-go/internal/database/migrations"
	"shopkeep-go/internal/sk"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrReleased is returned by operations on a database whose handle has
// been released and not yet re-acquired.
var ErrReleased = errors.New("database handle released")

// Name is a row of the names table.
type Name struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// SQLiteDatabase is the local shop database (name_db). It implements
// sk.Database; the connection can be released so the files can be
// replaced by a restore, then re-acquired.
type SQLiteDatabase struct {
	mu     sync.Mutex
	db     *sql.DB
	files  sk.FileSet
	logger sk.Logger
}

var _ sk.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens (creating if needed) the database named name in
// dir and applies pending migrations.
func NewSQLiteDatabase(dir, name string, logger sk.Logger) (*SQLiteDatabase, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	s := &SQLiteDatabase{
		files:  sk.FileSet{Dir: dir, Name: name},
		logger: logger,
	}
	if err := s.Acquire(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenConnection opens and configures a SQLite database connection with
// write-ahead logging and foreign keys enabled.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Acquire opens the connection if it is not open and brings the schema up
// to date. A restored database from an older build is migrated here.
func (s *SQLiteDatabase) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := OpenConnection(s.files.Primary())
	if err != nil {
		return err
	}
	if err := migrations.MigrateUp(db, migrations.Shop); err != nil {
		db.Close()
		return fmt.Errorf("migrating database: %w", err)
	}
	s.db = db
	s.logger.Debug("database acquired", "path", s.files.Primary())
	return nil
}

// Release closes the connection. Releasing twice is a no-op.
func (s *SQLiteDatabase) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	s.logger.Debug("database released", "path", s.files.Primary())
	return nil
}

// Close is Release.
func (s *SQLiteDatabase) Close() error {
	return s.Release()
}

// Files returns where the database lives on disk.
func (s *SQLiteDatabase) Files() sk.FileSet {
	return s.files
}

// Checkpoint copies all WAL frames into the primary file.
func (s *SQLiteDatabase) Checkpoint(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	var busy, logFrames, checkpointed int
	row := db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(FULL)")
	if err := row.Scan(&busy, &logFrames, &checkpointed); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if busy != 0 {
		return fmt.Errorf("wal checkpoint blocked by another connection")
	}
	s.logger.Debug("wal checkpoint", "frames", logFrames, "checkpointed", checkpointed)
	return nil
}

// CheckMigrations reports whether the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return migrations.CheckDBMigrationStatus(db, migrations.Shop)
}

// AddName inserts a row into the names table.
func (s *SQLiteDatabase) AddName(ctx context.Context, name string, now time.Time) (*Name, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name must not be empty")
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	res, err := db.ExecContext(ctx,
		"INSERT INTO names (name, created_at) VALUES (?, ?)",
		name, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting name: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted id: %w", err)
	}
	return &Name{ID: id, Name: name, CreatedAt: now.UTC()}, nil
}

// ListNames returns all names, newest first.
func (s *SQLiteDatabase) ListNames(ctx context.Context) ([]*Name, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT id, name, created_at FROM names ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing names: %w", err)
	}
	defer rows.Close()

	var names []*Name
	for rows.Next() {
		var n Name
		var created string
		if err := rows.Scan(&n.ID, &n.Name, &created); err != nil {
			return nil, fmt.Errorf("scanning name: %w", err)
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at of name %d: %w", n.ID, err)
		}
		names = append(names, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating names: %w", err)
	}
	return names, nil
}

func (s *SQLiteDatabase) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrReleased
	}
	return s.db, nil
}
