package sk

import (
	"context"
	"path/filepath"
)

// FileSet names the files that together form a database snapshot:
// the primary file plus the write-ahead and shared-memory side files.
type FileSet struct {
	Dir  string
	Name string
}

// Primary returns the path of the primary database file.
func (f FileSet) Primary() string {
	return filepath.Join(f.Dir, f.Name)
}

// SideFiles returns the paths of the optional side files, WAL first.
func (f FileSet) SideFiles() []string {
	return []string{
		filepath.Join(f.Dir, f.Name+"-wal"),
		filepath.Join(f.Dir, f.Name+"-shm"),
	}
}

// Members returns the primary file followed by the side files.
func (f FileSet) Members() []string {
	return append([]string{f.Primary()}, f.SideFiles()...)
}

// Database is the handle on the local embedded database. The handle is
// owned by the composition root and passed explicitly to whoever needs it.
type Database interface {
	// Checkpoint flushes write-ahead state into the primary file.
	Checkpoint(ctx context.Context) error

	// Files describes where the database lives on disk.
	Files() FileSet

	// Release closes the underlying connection so the files can be
	// overwritten. The owner re-acquires it afterwards.
	Release() error
}
