package database

import (
	"fmt"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/sk"
)

// NewDatabaseFromConfig creates the local database based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, logger sk.Logger) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		name := cfg.Name
		if name == "" {
			name = config.DefaultDatabaseName
		}
		return NewSQLiteDatabase(cfg.DataDir, name, logger)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
