package sk

import (
	"context"
	"fmt"
	"path/filepath"
)

const (
	restoreStagingDir  = "restore_temp"
	restoreArchiveName = "restore.zip"
)

// restore downloads the remote archive and replaces the local database
// files with its contents. Returns ErrNotFound when no archive exists.
//
// The database handle is released before any live file is touched. Side
// files absent from the archive are deleted locally so a stale WAL cannot
// be replayed over the restored primary file.
func (o *Orchestrator) restore(ctx context.Context, grant AccessGrant) error {
	handle, err := o.vault.FindBackupObject(ctx, grant)
	if err != nil {
		return fmt.Errorf("looking up remote backup: %w", err)
	}
	if handle == nil {
		return ErrNotFound
	}

	archivePath := o.staging.Path(restoreArchiveName)
	defer o.cleanup(archivePath)

	if err := o.vault.Download(ctx, grant, *handle, archivePath); err != nil {
		return fmt.Errorf("downloading backup: %w", err)
	}

	tempDir, err := o.staging.Fresh(restoreStagingDir)
	if err != nil {
		return fmt.Errorf("preparing restore directory: %w", err)
	}
	defer o.cleanup(tempDir)

	if err := o.archiver.Unpack(archivePath, tempDir); err != nil {
		return fmt.Errorf("unpacking backup: %w", err)
	}

	files := o.database.Files()
	restoredPrimary := filepath.Join(tempDir, files.Name)
	if !o.fsmgr.Exists(restoredPrimary) {
		return fmt.Errorf("archive does not contain %s", files.Name)
	}

	if err := o.database.Release(); err != nil {
		return fmt.Errorf("releasing database: %w", err)
	}

	if err := o.fsmgr.CopyFile(restoredPrimary, files.Primary()); err != nil {
		return fmt.Errorf("restoring %s: %w", files.Name, err)
	}

	for _, live := range files.SideFiles() {
		name := filepath.Base(live)
		restored := filepath.Join(tempDir, name)
		switch {
		case o.fsmgr.Exists(restored):
			if err := o.fsmgr.CopyFile(restored, live); err != nil {
				return fmt.Errorf("restoring %s: %w", name, err)
			}
		case o.fsmgr.Exists(live):
			if err := o.fsmgr.Remove(live); err != nil {
				return fmt.Errorf("removing stale %s: %w", name, err)
			}
			o.logger.Debug("removed stale side file", "path", live)
		}
	}

	o.logger.Info("backup restored", "account", grant.Account.String(), "handle", handle.ID)
	return nil
}
