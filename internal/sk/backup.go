package sk

import (
	"context"
	"fmt"
	"path/filepath"
)

const backupStagingDir = "backup_temp"

// backup packages the local database and uploads it.
//
// The live files are never archived directly: they are checkpointed, copied
// into an isolated staging directory, and the copies are packed. Staging
// and the archive are removed afterwards on a best-effort basis.
func (o *Orchestrator) backup(ctx context.Context, grant AccessGrant) error {
	if err := o.database.Checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpointing database: %w", err)
	}

	// Primary first, then whichever side files exist.
	var files []string
	for _, f := range o.database.Files().Members() {
		if o.fsmgr.Exists(f) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return ErrNoLocalData
	}

	stageDir, err := o.staging.Fresh(backupStagingDir)
	if err != nil {
		return fmt.Errorf("preparing staging directory: %w", err)
	}
	archivePath := o.staging.Path(BackupObjectName)
	defer o.cleanup(stageDir, archivePath)

	staged := make([]string, 0, len(files))
	for _, f := range files {
		dst := filepath.Join(stageDir, filepath.Base(f))
		if err := o.fsmgr.CopyFile(f, dst); err != nil {
			return fmt.Errorf("staging %s: %w", filepath.Base(f), err)
		}
		staged = append(staged, dst)
	}

	if err := o.archiver.Pack(staged, archivePath); err != nil {
		return fmt.Errorf("packing archive: %w", err)
	}

	existing, err := o.vault.FindBackupObject(ctx, grant)
	if err != nil {
		return fmt.Errorf("looking up remote backup: %w", err)
	}

	handle, err := o.vault.Upload(ctx, grant, archivePath, existing)
	if err != nil {
		return fmt.Errorf("uploading backup: %w", err)
	}

	o.logger.Info("backup uploaded",
		"account", grant.Account.String(),
		"handle", handle.ID,
		"files", len(staged),
		"replaced", existing != nil,
	)
	return nil
}
