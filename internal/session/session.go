// Package session keeps local preferences between runs: the last
// signed-in identity and the history of operations.
package session

import (
	"context"
	"fmt"
	"time"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/sk"
)

// Preference namespace and key of the remembered identity.
const (
	PrefsNamespace = "app_prefs"
	UserEmailKey   = "user_email"
)

// Operation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Operation is one recorded CLI operation.
type Operation struct {
	ID         int64
	Operation  string
	Account    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Detail     string
}

// Store is the local preferences store.
type Store interface {
	sk.SessionStore

	// StartOperation records a running operation and returns its id.
	StartOperation(ctx context.Context, operation, account string, at time.Time) (int64, error)
	// FinishOperation marks an operation finished.
	FinishOperation(ctx context.Context, id int64, status, detail string, at time.Time) error
	// ListOperations returns the most recent operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)

	Close() error
}

// NewStoreFromConfig creates a Store implementation based on the session config type.
func NewStoreFromConfig(cfg config.SessionConfig, clock sk.Clock) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite session store")
		}
		s, err := OpenSQLiteStore(cfg.Path, clock)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store type: %s", cfg.Type)
	}
}
