// Package staging hands out scratch directories and file paths under the
// cache location for packing and unpacking archives.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shopkeep-go/internal/sk"
)

// Area is a directory-backed implementation of the StagingArea interface.
//
// Directory structure:
//
//	<cache_dir>/
//	  backup_temp/    (copies of the database files being backed up)
//	  backup.zip      (archive being uploaded)
//	  restore_temp/   (extracted archive contents)
//	  restore.zip     (archive being restored)
type Area struct {
	root string
}

// NewArea creates a staging area rooted at root, creating it if needed.
func NewArea(root string) (*Area, error) {
	if root == "" {
		return nil, fmt.Errorf("staging area requires a directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Area{root: root}, nil
}

// Root returns the directory the area lives in.
func (a *Area) Root() string {
	return a.root
}

// Fresh returns an empty directory called name under the root.
func (a *Area) Fresh(name string) (string, error) {
	dir, err := a.child(name)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}
	return dir, nil
}

// Path returns the path of a scratch file called name under the root.
func (a *Area) Path(name string) string {
	return filepath.Join(a.root, filepath.Base(name))
}

func (a *Area) child(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("invalid staging name: %q", name)
	}
	return filepath.Join(a.root, name), nil
}

// Compile-time check that Area implements sk.StagingArea interface
var _ sk.StagingArea = (*Area)(nil)
