package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"shopkeep-go/internal/sk"
)

// Drive constants for the private application-data folder.
const (
	AppDataFolder  = "appDataFolder"
	archiveMIME    = "application/zip"
	backupQuery    = "name = '" + sk.BackupObjectName + "' and '" + AppDataFolder + "' in parents and trashed = false"
	listFields     = "files(id, name)"
	uploadedFields = "id"
)

// DriveVault stores the archive in the user's Google Drive appDataFolder.
// Each call builds a client authorized with the grant's access token.
type DriveVault struct {
	opts   []option.ClientOption
	logger sk.Logger
}

// NewDriveVault creates a DriveVault. opts are appended to every client;
// tests use them to point the client at a local server.
func NewDriveVault(logger sk.Logger, opts ...option.ClientOption) *DriveVault {
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	return &DriveVault{opts: opts, logger: logger}
}

func (v *DriveVault) service(ctx context.Context, grant sk.AccessGrant) (*drive.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: grant.Token, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, v.opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}
	return srv, nil
}

// FindBackupObject lists the appDataFolder for backup.zip and returns the
// first match.
func (v *DriveVault) FindBackupObject(ctx context.Context, grant sk.AccessGrant) (*sk.RemoteHandle, error) {
	if err := requireGrant("find", grant); err != nil {
		return nil, err
	}
	srv, err := v.service(ctx, grant)
	if err != nil {
		return nil, sk.NewTransportError("find", err)
	}

	list, err := srv.Files.List().
		Spaces(AppDataFolder).
		Q(backupQuery).
		Fields(listFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, sk.NewTransportError("find", describeAPIError(err))
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	if len(list.Files) > 1 {
		v.logger.Warn("multiple backup objects found, using the first",
			"account", grant.Account.String(), "count", len(list.Files))
	}
	return &sk.RemoteHandle{ID: list.Files[0].Id}, nil
}

// Upload updates existing in place, or creates backup.zip in appDataFolder.
func (v *DriveVault) Upload(ctx context.Context, grant sk.AccessGrant, localArchive string, existing *sk.RemoteHandle) (sk.RemoteHandle, error) {
	if err := requireGrant("upload", grant); err != nil {
		return sk.RemoteHandle{}, err
	}
	srv, err := v.service(ctx, grant)
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", err)
	}

	f, err := os.Open(localArchive)
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", fmt.Errorf("opening archive: %w", err))
	}
	defer f.Close()

	var file *drive.File
	if existing != nil {
		file, err = srv.Files.Update(existing.ID, &drive.File{}).
			Media(f, googleapi.ContentType(archiveMIME)).
			Fields(uploadedFields).
			Context(ctx).
			Do()
	} else {
		meta := &drive.File{
			Name:     sk.BackupObjectName,
			Parents:  []string{AppDataFolder},
			MimeType: archiveMIME,
		}
		file, err = srv.Files.Create(meta).
			Media(f, googleapi.ContentType(archiveMIME)).
			Fields(uploadedFields).
			Context(ctx).
			Do()
	}
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", describeAPIError(err))
	}
	return sk.RemoteHandle{ID: file.Id}, nil
}

// Download streams the object's content to dest.
func (v *DriveVault) Download(ctx context.Context, grant sk.AccessGrant, handle sk.RemoteHandle, dest string) error {
	if err := requireGrant("download", grant); err != nil {
		return err
	}
	srv, err := v.service(ctx, grant)
	if err != nil {
		return sk.NewTransportError("download", err)
	}

	resp, err := srv.Files.Get(handle.ID).Context(ctx).Download()
	if err != nil {
		return sk.NewTransportError("download", describeAPIError(err))
	}
	defer resp.Body.Close()

	if _, err := writeFile(dest, resp.Body); err != nil {
		return sk.NewTransportError("download", err)
	}
	return nil
}

// describeAPIError adds the HTTP status to Drive API errors.
func describeAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("drive rejected the access token (%d): %w", apiErr.Code, err)
	case http.StatusNotFound:
		return fmt.Errorf("drive object not found: %w", err)
	default:
		return fmt.Errorf("drive api status %d: %w", apiErr.Code, err)
	}
}

// Compile-time check that DriveVault implements sk.Vault interface
var _ sk.Vault = (*DriveVault)(nil)
