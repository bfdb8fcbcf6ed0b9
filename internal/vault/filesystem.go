package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"shopkeep-go/internal/sk"
)

// objectMeta is stored next to each object's content as meta.toml.
type objectMeta struct {
	Name     string    `toml:"name"`
	Trashed  bool      `toml:"trashed"`
	Created  time.Time `toml:"created"`
	Modified time.Time `toml:"modified"`
}

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores objects in a directory structure:
//
//	<root>/
//	  <escaped account>/
//	    <object id>/
//	      content      (archive bytes)
//	      meta.toml    (name, trashed flag, timestamps)
type FileSystemVault struct {
	root  string
	ids   sk.IDGenerator
	clock sk.Clock
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(root string, ids sk.IDGenerator, clock sk.Clock) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	if ids == nil {
		ids = sk.UUIDGenerator{}
	}
	if clock == nil {
		clock = sk.RealClock{}
	}
	return &FileSystemVault{root: root, ids: ids, clock: clock}, nil
}

// FindBackupObject returns the oldest non-trashed object named backup.zip.
func (v *FileSystemVault) FindBackupObject(_ context.Context, grant sk.AccessGrant) (*sk.RemoteHandle, error) {
	if err := requireGrant("find", grant); err != nil {
		return nil, err
	}

	dir := v.accountDir(grant.Account)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, sk.NewTransportError("find", fmt.Errorf("listing %s: %w", dir, err))
	}

	type candidate struct {
		id      string
		created time.Time
	}
	var found []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := readMeta(filepath.Join(dir, e.Name(), "meta.toml"))
		if err != nil {
			return nil, sk.NewTransportError("find", err)
		}
		if meta.Name == sk.BackupObjectName && !meta.Trashed {
			found = append(found, candidate{id: e.Name(), created: meta.Created})
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].created.Equal(found[j].created) {
			return found[i].created.Before(found[j].created)
		}
		return found[i].id < found[j].id
	})
	return &sk.RemoteHandle{ID: found[0].id}, nil
}

// Upload overwrites existing's content in place, or creates a new object.
func (v *FileSystemVault) Upload(_ context.Context, grant sk.AccessGrant, localArchive string, existing *sk.RemoteHandle) (sk.RemoteHandle, error) {
	if err := requireGrant("upload", grant); err != nil {
		return sk.RemoteHandle{}, err
	}

	now := v.clock.Now().UTC()
	var id string
	var meta objectMeta
	if existing != nil {
		id = existing.ID
		m, err := readMeta(v.metaPath(grant.Account, id))
		if err != nil {
			return sk.RemoteHandle{}, sk.NewTransportError("upload", err)
		}
		meta = *m
	} else {
		id = v.ids.New()
		meta = objectMeta{Name: sk.BackupObjectName, Created: now}
	}
	meta.Modified = now

	f, err := os.Open(localArchive)
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", fmt.Errorf("opening archive: %w", err))
	}
	defer f.Close()

	if _, err := writeFile(filepath.Join(v.accountDir(grant.Account), id, "content"), f); err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", err)
	}
	if err := writeMeta(v.metaPath(grant.Account, id), meta); err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", err)
	}
	return sk.RemoteHandle{ID: id}, nil
}

// Download copies the object's content to dest.
func (v *FileSystemVault) Download(_ context.Context, grant sk.AccessGrant, handle sk.RemoteHandle, dest string) error {
	if err := requireGrant("download", grant); err != nil {
		return err
	}
	if handle.ID == "" || handle.ID != filepath.Base(handle.ID) {
		return sk.NewTransportError("download", fmt.Errorf("invalid object id: %q", handle.ID))
	}

	src, err := os.Open(filepath.Join(v.accountDir(grant.Account), handle.ID, "content"))
	if errors.Is(err, os.ErrNotExist) {
		return sk.NewTransportError("download", fmt.Errorf("object not found: %s", handle.ID))
	}
	if err != nil {
		return sk.NewTransportError("download", fmt.Errorf("failed to open object: %w", err))
	}
	defer src.Close()

	if _, err := writeFile(dest, src); err != nil {
		return sk.NewTransportError("download", err)
	}
	return nil
}

// Trash marks an object as trashed so it is no longer found.
func (v *FileSystemVault) Trash(account sk.Identity, id string) error {
	path := v.metaPath(account, id)
	meta, err := readMeta(path)
	if err != nil {
		return err
	}
	meta.Trashed = true
	meta.Modified = v.clock.Now().UTC()
	return writeMeta(path, *meta)
}

// ValidateSetup verifies that the vault root is an accessible directory.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

func (v *FileSystemVault) accountDir(account sk.Identity) string {
	return filepath.Join(v.root, accountSegment(account))
}

func (v *FileSystemVault) metaPath(account sk.Identity, id string) string {
	return filepath.Join(v.accountDir(account), id, "meta.toml")
}

func readMeta(path string) (*objectMeta, error) {
	var meta objectMeta
	if _, err := toml.DecodeFile(path, &meta); err != nil {
		return nil, fmt.Errorf("reading object metadata %s: %w", path, err)
	}
	return &meta, nil
}

func writeMeta(path string, meta objectMeta) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if err := toml.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding object metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemVault implements sk.Vault interface
var _ sk.Vault = (*FileSystemVault)(nil)
