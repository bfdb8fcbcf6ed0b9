package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shopkeep-go/internal/sk"
)

const account = sk.Identity("owner@example.com")

func granted() sk.AccessGrant {
	return sk.Granted(account, "token")
}

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "backup.zip")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(b)
}

// backends returns each local Vault implementation.
func backends(t *testing.T) map[string]sk.Vault {
	t.Helper()
	fsv, err := NewFileSystemVault(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	return map[string]sk.Vault{
		"memory":     NewMemoryVault(),
		"filesystem": fsv,
	}
}

func TestVault_Contract(t *testing.T) {
	ctx := context.Background()

	for name, v := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h, err := v.FindBackupObject(ctx, granted())
			if err != nil {
				t.Fatalf("FindBackupObject() on empty vault error = %v", err)
			}
			if h != nil {
				t.Fatalf("FindBackupObject() on empty vault = %v, want nil", h)
			}

			created, err := v.Upload(ctx, granted(), writeArchive(t, "v1"), nil)
			if err != nil {
				t.Fatalf("Upload() create error = %v", err)
			}

			found, err := v.FindBackupObject(ctx, granted())
			if err != nil || found == nil {
				t.Fatalf("FindBackupObject() = %v, %v", found, err)
			}
			if found.ID != created.ID {
				t.Errorf("found handle %q, want %q", found.ID, created.ID)
			}

			updated, err := v.Upload(ctx, granted(), writeArchive(t, "v2"), found)
			if err != nil {
				t.Fatalf("Upload() update error = %v", err)
			}
			if updated.ID != created.ID {
				t.Errorf("update returned handle %q, want %q", updated.ID, created.ID)
			}

			dest := filepath.Join(t.TempDir(), "restore.zip")
			os.WriteFile(dest, []byte("stale and longer"), 0o644)
			if err := v.Download(ctx, granted(), updated, dest); err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if got := readFile(t, dest); got != "v2" {
				t.Errorf("downloaded %q, want %q", got, "v2")
			}

			other := sk.Granted("someone@example.com", "token")
			if h, _ := v.FindBackupObject(ctx, other); h != nil {
				t.Errorf("other account sees handle %v", h)
			}

			var te *sk.TransportError
			err = v.Download(ctx, granted(), sk.RemoteHandle{ID: "missing"}, dest)
			if !errors.As(err, &te) {
				t.Errorf("Download() of missing object error = %v, want *TransportError", err)
			}
		})
	}
}

func TestVault_RejectsUngrantedAccess(t *testing.T) {
	ctx := context.Background()
	denied := sk.Denied(account)

	for name, v := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var te *sk.TransportError
			if _, err := v.FindBackupObject(ctx, denied); !errors.As(err, &te) {
				t.Errorf("FindBackupObject() error = %v, want *TransportError", err)
			}
			if _, err := v.Upload(ctx, denied, writeArchive(t, "x"), nil); !errors.As(err, &te) {
				t.Errorf("Upload() error = %v, want *TransportError", err)
			}
		})
	}
}

func TestMemoryVault_FirstMatchSkipsTrashed(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()
	v.Seed(account, "backup.zip", []byte("old"), true)
	v.Seed(account, "other.zip", []byte("x"), false)
	first := v.Seed(account, "backup.zip", []byte("a"), false)
	v.Seed(account, "backup.zip", []byte("b"), false)

	h, err := v.FindBackupObject(ctx, granted())
	if err != nil {
		t.Fatalf("FindBackupObject() error = %v", err)
	}
	if h == nil || h.ID != first.ID {
		t.Errorf("FindBackupObject() = %v, want %v", h, first)
	}
	if got := v.Calls().Finds; got != 1 {
		t.Errorf("Finds = %d, want 1", got)
	}
}

func TestMemoryVault_CountsAndFailures(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	h, _ := v.Upload(ctx, granted(), writeArchive(t, "a"), nil)
	v.Upload(ctx, granted(), writeArchive(t, "b"), &h)

	want := CallCounts{Creates: 1, Updates: 1}
	if got := v.Calls(); got != want {
		t.Errorf("Calls() = %+v, want %+v", got, want)
	}
	if n := len(v.Objects(account)); n != 1 {
		t.Errorf("len(Objects()) = %d, want 1", n)
	}

	boom := errors.New("connection reset")
	v.Fail("download", boom)
	err := v.Download(ctx, granted(), h, filepath.Join(t.TempDir(), "out"))
	var te *sk.TransportError
	if !errors.As(err, &te) || te.Op != "download" || !errors.Is(err, boom) {
		t.Errorf("Download() error = %v, want download TransportError wrapping %v", err, boom)
	}

	v.Fail("download", nil)
	if err := v.Download(ctx, granted(), h, filepath.Join(t.TempDir(), "out")); err != nil {
		t.Errorf("Download() after clearing failure error = %v", err)
	}
}

func TestFileSystemVault_Trash(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateSetup(); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	h, err := v.Upload(ctx, granted(), writeArchive(t, "a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Trash(account, h.ID); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}

	found, err := v.FindBackupObject(ctx, granted())
	if err != nil {
		t.Fatalf("FindBackupObject() error = %v", err)
	}
	if found != nil {
		t.Errorf("FindBackupObject() = %v, want nil after trash", found)
	}
}

func TestFileSystemVault_DownloadRejectsPathIDs(t *testing.T) {
	v, _ := NewFileSystemVault(t.TempDir(), nil, nil)
	err := v.Download(context.Background(), granted(), sk.RemoteHandle{ID: "../x"}, filepath.Join(t.TempDir(), "out"))
	var te *sk.TransportError
	if !errors.As(err, &te) {
		t.Errorf("Download() error = %v, want *TransportError", err)
	}
}
