// Package vault implements the remote object stores that hold one backup
// archive per account.
package vault

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"shopkeep-go/internal/sk"
)

// requireGrant rejects grants that do not authorize storage access.
func requireGrant(op string, grant sk.AccessGrant) error {
	if grant.Kind != sk.GrantGranted {
		return sk.NewTransportError(op, fmt.Errorf("storage access not granted (%s)", grant.Kind))
	}
	if grant.Account == "" {
		return sk.NewTransportError(op, fmt.Errorf("grant has no account"))
	}
	return nil
}

// accountSegment turns an account into a single path segment.
func accountSegment(account sk.Identity) string {
	return url.PathEscape(account.String())
}

// writeFile writes data from r to destPath using an atomic write (temp file + rename).
func writeFile(destPath string, r io.Reader) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return written, nil
}
