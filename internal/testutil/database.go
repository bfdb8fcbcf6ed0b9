package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"shopkeep-go/internal/database"
	"shopkeep-go/internal/sk"
)

// NewTestDatabase creates a migrated SQLite database in a per-test temp
// dir. The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(t.TempDir(), "name_db", nil)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := db.Acquire(); err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// StubDatabase is a file-only sk.Database. The files are written by the
// test; Checkpoint and Release only count calls.
type StubDatabase struct {
	mu            sync.Mutex
	files         sk.FileSet
	CheckpointErr error
	checkpoints   int
	releases      int
}

var _ sk.Database = (*StubDatabase)(nil)

// NewStubDatabase creates a StubDatabase whose files live in a temp dir.
func NewStubDatabase(t *testing.T) *StubDatabase {
	t.Helper()
	return &StubDatabase{files: sk.FileSet{Dir: t.TempDir(), Name: "name_db"}}
}

// WriteFiles writes the given members; keys are "primary", "wal" and "shm".
func (d *StubDatabase) WriteFiles(t *testing.T, contents map[string]string) {
	t.Helper()
	for part, content := range contents {
		if err := os.WriteFile(d.path(part), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", part, err)
		}
	}
}

// ReadFile returns a member's content and whether it exists.
func (d *StubDatabase) ReadFile(t *testing.T, part string) (string, bool) {
	t.Helper()
	b, err := os.ReadFile(d.path(part))
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("failed to read %s: %v", part, err)
	}
	return string(b), true
}

func (d *StubDatabase) path(part string) string {
	switch part {
	case "wal":
		return filepath.Join(d.files.Dir, d.files.Name+"-wal")
	case "shm":
		return filepath.Join(d.files.Dir, d.files.Name+"-shm")
	default:
		return d.files.Primary()
	}
}

func (d *StubDatabase) Checkpoint(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkpoints++
	return d.CheckpointErr
}

func (d *StubDatabase) Files() sk.FileSet { return d.files }

func (d *StubDatabase) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
	return nil
}

// Checkpoints returns how often Checkpoint was called.
func (d *StubDatabase) Checkpoints() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkpoints
}

// Releases returns how often Release was called.
func (d *StubDatabase) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}
