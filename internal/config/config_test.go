package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:  "/home/user/.local/share/shopkeep",
		LogDir:   "/home/user/.local/share/shopkeep/log",
		CacheDir: "/home/user/.local/share/shopkeep/cache",
		Vault: VaultConfig{
			Type:       "s3",
			S3Bucket:   "shop-backups",
			S3Prefix:   "prod",
			S3Region:   "eu-west-1",
			S3Endpoint: "http://localhost:9000",
		},
		Profile: ProfileConfig{
			Type:        "postgres",
			PostgresDSN: "postgres://sk:sk@localhost:5432/shop",
		},
		Identity: IdentityConfig{Type: "static", StaticEmail: "owner@example.com"},
		OAuth: OAuthConfig{
			ClientID:       "client.apps.googleusercontent.com",
			ClientSecret:   "secret",
			RedirectAddr:   "127.0.0.1:9999",
			ConsentTimeout: Duration{90 * time.Second},
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/data/db", Name: "name_db"},
		Session:  SessionConfig{Type: "memory"},
		Staging:  StagingConfig{Type: "temp"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), `consent_timeout = "1m30s"`) {
		t.Errorf("consent_timeout not written as a duration string:\n%s", buf.String())
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if diff := cmp.Diff(original, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/sk")

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"BaseDir", cfg.BaseDir, "/data/sk"},
		{"LogDir", cfg.LogDir, "/data/sk/log"},
		{"CacheDir", cfg.CacheDir, "/data/sk/cache"},
		{"Vault.Type", cfg.Vault.Type, "drive"},
		{"Profile.Type", cfg.Profile.Type, "firestore"},
		{"Profile.FirestoreCollection", cfg.Profile.FirestoreCollection, "users"},
		{"Identity.Type", cfg.Identity.Type, "google"},
		{"OAuth.RedirectAddr", cfg.OAuth.RedirectAddr, "127.0.0.1:8085"},
		{"Database.DataDir", cfg.Database.DataDir, "/data/sk/db"},
		{"Database.Name", cfg.Database.Name, "name_db"},
		{"Session.Path", cfg.Session.Path, "/data/sk/app_prefs.db"},
		{"Staging.Dir", cfg.Staging.Dir, "/data/sk/cache"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if cfg.OAuth.ConsentTimeout.Duration != 5*time.Minute {
		t.Errorf("OAuth.ConsentTimeout = %v, want 5m", cfg.OAuth.ConsentTimeout)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shopkeep.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shopkeep.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, NewConfig(dir)); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shopkeep.toml")
		cfg := NewConfig(dir)
		cfg.Vault = VaultConfig{Type: "filesystem", FSVaultRoot: filepath.Join(dir, "vault")}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if diff := cmp.Diff(cfg, got); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fills omitted defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shopkeep.toml")
		content := `
base_dir = "/data/sk"
cache_dir = "/data/sk/cache"

[vault]
type = "memory"

[profile]
type = "firestore"

[staging]
type = "filesystem"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Name != DefaultDatabaseName {
			t.Errorf("Database.Name = %q, want %q", got.Database.Name, DefaultDatabaseName)
		}
		if got.OAuth.ConsentTimeout.Duration != DefaultConsentTimeout {
			t.Errorf("OAuth.ConsentTimeout = %v, want %v", got.OAuth.ConsentTimeout, DefaultConsentTimeout)
		}
		if got.Profile.FirestoreCollection != "users" {
			t.Errorf("Profile.FirestoreCollection = %q, want users", got.Profile.FirestoreCollection)
		}
		if got.Staging.Dir != "/data/sk/cache" {
			t.Errorf("Staging.Dir = %q, want cache dir", got.Staging.Dir)
		}
	})

	t.Run("rejects malformed duration", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shopkeep.toml")
		os.WriteFile(path, []byte("[oauth]\nconsent_timeout = \"soon\"\n"), 0600)

		if _, err := ReadFromFile(path); err == nil {
			t.Fatal("ReadFromFile() expected error for malformed duration")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/shopkeep.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
