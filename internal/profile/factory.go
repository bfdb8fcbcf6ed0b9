package profile

import (
	"context"
	"fmt"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/sk"
)

// Store is an sk.ProfileStore holding a connection.
type Store interface {
	sk.ProfileStore
	Close() error
}

// NewStoreFromConfig creates a profile store based on the profile config type.
func NewStoreFromConfig(ctx context.Context, cfg config.ProfileConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "firestore":
		if cfg.FirestoreProject == "" {
			return nil, fmt.Errorf("firestore profile store requires firestore_project to be set")
		}
		collection := cfg.FirestoreCollection
		if collection == "" {
			collection = config.DefaultProfileCollection
		}
		s, err := OpenFirestoreStore(ctx, cfg.FirestoreProject, collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres profile store requires postgres_dsn to be set")
		}
		s, err := OpenPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown profile type: %s", cfg.Type)
	}
}
