package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by NewConfig.
const (
	DefaultDatabaseName      = "name_db"
	DefaultSessionFile       = "app_prefs.db"
	DefaultRedirectAddr      = "127.0.0.1:8085"
	DefaultConsentTimeout    = 5 * time.Minute
	DefaultProfileCollection = "users"
)

// Config represents the main configuration for sk.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	CacheDir string         `toml:"cache_dir"`
	Vault    VaultConfig    `toml:"vault"`
	Profile  ProfileConfig  `toml:"profile"`
	Identity IdentityConfig `toml:"identity"`
	OAuth    OAuthConfig    `toml:"oauth"`
	Database DatabaseConfig `toml:"database"`
	Session  SessionConfig  `toml:"session"`
	Staging  StagingConfig  `toml:"staging"`
}

// VaultConfig represents configuration for the remote backup store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "drive", "s3", "filesystem" or "memory"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// Static credentials; when empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// ProfileConfig represents configuration for the shop profile store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ProfileConfig struct {
	Type string `toml:"type"` // "firestore", "postgres" or "memory"

	// Firestore-specific fields (only used when Type == "firestore")
	FirestoreProject    string `toml:"firestore_project,omitempty"`
	FirestoreCollection string `toml:"firestore_collection,omitempty"`

	// Postgres-specific fields (only used when Type == "postgres")
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// IdentityConfig selects how the user is identified.
type IdentityConfig struct {
	Type string `toml:"type"` // "google" or "static"

	// Only used when Type == "static"
	StaticEmail string `toml:"static_email,omitempty"`
}

// OAuthConfig holds the Google OAuth client used for sign-in and the
// storage consent screen.
type OAuthConfig struct {
	ClientID       string   `toml:"client_id"`
	ClientSecret   string   `toml:"client_secret"`
	RedirectAddr   string   `toml:"redirect_addr"`
	ConsentTimeout Duration `toml:"consent_timeout"`
}

// DatabaseConfig represents configuration for the local shop database.
type DatabaseConfig struct {
	Type    string `toml:"type"` // "sqlite"
	DataDir string `toml:"data_dir"`
	Name    string `toml:"name"`
}

// SessionConfig represents configuration for the local preferences store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SessionConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// StagingConfig represents configuration for the staging area.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type string `toml:"type"`          // "filesystem" or "temp"
	Dir  string `toml:"dir,omitempty"` // only used for type=filesystem
}

// Duration is a time.Duration written as a string such as "5m0s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a new Config rooted at baseDir with default backends.
func NewConfig(baseDir string) *Config {
	cacheDir := filepath.Join(baseDir, "cache")
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		CacheDir: cacheDir,
		Vault:    VaultConfig{Type: "drive"},
		Profile: ProfileConfig{
			Type:                "firestore",
			FirestoreCollection: DefaultProfileCollection,
		},
		Identity: IdentityConfig{Type: "google"},
		OAuth: OAuthConfig{
			RedirectAddr:   DefaultRedirectAddr,
			ConsentTimeout: Duration{DefaultConsentTimeout},
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
			Name:    DefaultDatabaseName,
		},
		Session: SessionConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, DefaultSessionFile),
		},
		Staging: StagingConfig{Type: "filesystem", Dir: cacheDir},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills settings that older config files may omit.
func (c *Config) applyDefaults() {
	if c.Database.Name == "" {
		c.Database.Name = DefaultDatabaseName
	}
	if c.OAuth.RedirectAddr == "" {
		c.OAuth.RedirectAddr = DefaultRedirectAddr
	}
	if c.OAuth.ConsentTimeout.Duration <= 0 {
		c.OAuth.ConsentTimeout = Duration{DefaultConsentTimeout}
	}
	if c.Profile.Type == "firestore" && c.Profile.FirestoreCollection == "" {
		c.Profile.FirestoreCollection = DefaultProfileCollection
	}
	if c.Staging.Type == "filesystem" && c.Staging.Dir == "" {
		c.Staging.Dir = c.CacheDir
	}
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry an OAuth client secret.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
