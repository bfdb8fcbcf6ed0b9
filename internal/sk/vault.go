package sk

import "context"

// BackupObjectName is the fixed remote name of the archive.
const BackupObjectName = "backup.zip"

// RemoteHandle identifies the archive object in the remote store.
type RemoteHandle struct {
	ID string
}

// Vault is the remote object store holding one backup archive per account
// inside a private, application-scoped folder. Implementations never retry;
// failures are returned as *TransportError.
type Vault interface {
	// FindBackupObject returns the first non-trashed object named
	// BackupObjectName, or nil if none exists.
	FindBackupObject(ctx context.Context, grant AccessGrant) (*RemoteHandle, error)

	// Upload replaces the content of existing in place when it is non-nil,
	// otherwise creates a new object. Returns the handle written to.
	Upload(ctx context.Context, grant AccessGrant, localArchive string, existing *RemoteHandle) (RemoteHandle, error)

	// Download streams the object's content to dest, overwriting it.
	Download(ctx context.Context, grant AccessGrant, handle RemoteHandle, dest string) error
}
