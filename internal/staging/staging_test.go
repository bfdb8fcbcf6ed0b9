package staging

import (
	"os"
	"path/filepath"
	"testing"

	"shopkeep-go/internal/config"
)

func TestArea_Fresh(t *testing.T) {
	t.Run("creates empty directory", func(t *testing.T) {
		a, err := NewArea(t.TempDir())
		if err != nil {
			t.Fatalf("NewArea() error = %v", err)
		}
		dir, err := a.Fresh("backup_temp")
		if err != nil {
			t.Fatalf("Fresh() error = %v", err)
		}
		if dir != filepath.Join(a.Root(), "backup_temp") {
			t.Errorf("Fresh() = %s, want under root", dir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("fresh directory has %d entries", len(entries))
		}
	})

	t.Run("clears previous contents", func(t *testing.T) {
		a, _ := NewArea(t.TempDir())
		dir, _ := a.Fresh("restore_temp")
		os.WriteFile(filepath.Join(dir, "name_db-wal"), []byte("stale"), 0o644)

		dir, err := a.Fresh("restore_temp")
		if err != nil {
			t.Fatalf("Fresh() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "name_db-wal")); !os.IsNotExist(err) {
			t.Error("stale file survived Fresh()")
		}
	})

	t.Run("rejects names with separators", func(t *testing.T) {
		a, _ := NewArea(t.TempDir())
		for _, name := range []string{"", ".", "..", "../escape", "a/b"} {
			if _, err := a.Fresh(name); err == nil {
				t.Errorf("Fresh(%q) expected error", name)
			}
		}
	})
}

func TestArea_Path(t *testing.T) {
	root := t.TempDir()
	a, _ := NewArea(root)
	if got, want := a.Path("backup.zip"), filepath.Join(root, "backup.zip"); got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
	if got, want := a.Path("../backup.zip"), filepath.Join(root, "backup.zip"); got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
}

func TestNewStagingAreaFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StagingConfig
		wantErr bool
	}{
		{"filesystem", config.StagingConfig{Type: "filesystem", Dir: t.TempDir()}, false},
		{"filesystem without dir", config.StagingConfig{Type: "filesystem"}, true},
		{"temp", config.StagingConfig{Type: "temp"}, false},
		{"unknown", config.StagingConfig{Type: "ramdisk"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, err := NewStagingAreaFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStagingAreaFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if sa != nil && tt.cfg.Type == "temp" {
				t.Cleanup(func() { os.RemoveAll(sa.Root()) })
			}
		})
	}
}
