// Package archive packs database files into the zip container uploaded as
// the backup object and unpacks it again on restore.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"shopkeep-go/internal/sk"
)

// ZipCodec implements sk.Archiver with a flat, deflate-compressed zip.
type ZipCodec struct {
	logger sk.Logger
}

var _ sk.Archiver = (*ZipCodec)(nil)

// ErrNestedEntry is returned by Unpack for a directory entry or an entry
// whose cleaned name still has a directory component.
var ErrNestedEntry = errors.New("archive entry is not a flat file")

// NewZipCodec creates a ZipCodec. logger may be nil.
func NewZipCodec(logger sk.Logger) *ZipCodec {
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	return &ZipCodec{logger: logger}
}

// Pack writes one entry per existing input file, named by its base name,
// in input order. Inputs that do not exist are skipped. dest is
// overwritten.
func (c *ZipCodec) Pack(files []string, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, path := range files {
		if err := c.addFile(zw, path); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

func (c *ZipCodec) addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Debug("skipping missing archive input", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("archive input is not a regular file: %s", path)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("preparing header for %s: %w", path, err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", header.Name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing entry %s: %w", header.Name, err)
	}
	return nil
}

// Unpack extracts every entry of archive into destDir in physical order,
// creating destDir if needed and overwriting existing files. An entry
// whose resolved path is not inside destDir fails with
// sk.ErrSecurityViolation before anything is written for it; an entry
// that would land in a subdirectory fails with ErrNestedEntry.
func (c *ZipCodec) Unpack(archive, destDir string) error {
	root, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", destDir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", root, err)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target, err := entryPath(root, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() || filepath.Dir(target) != root {
			return fmt.Errorf("%w: %q", ErrNestedEntry, entry.Name)
		}
		if err := extract(entry, target); err != nil {
			return err
		}
	}
	return nil
}

// entryPath resolves name under root, rejecting absolute names and any
// name whose cleaned form escapes root.
func entryPath(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", fmt.Errorf("%w: %q", sk.ErrSecurityViolation, name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", sk.ErrSecurityViolation, name)
	}
	return target, nil
}

func extract(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", entry.Name, err)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}
	return nil
}
