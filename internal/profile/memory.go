// Package profile implements the remote stores that hold shop profiles,
// keyed by account email.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shopkeep-go/internal/sk"
)

// ErrProfileNotFound is returned by updates to a profile that does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// MemoryStore is an in-memory implementation of sk.ProfileStore.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]sk.UserProfile
}

var _ sk.ProfileStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]sk.UserProfile)}
}

func (m *MemoryStore) IsRegistered(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.profiles[email]
	return ok, nil
}

// Register stores p, replacing any profile with the same email.
func (m *MemoryStore) Register(_ context.Context, p sk.UserProfile) error {
	if p.Email == "" {
		return errors.New("profile has no email")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Email] = p
	return nil
}

func (m *MemoryStore) Get(_ context.Context, email string) (*sk.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[email]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) UpdateDriveEmail(_ context.Context, email, driveEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[email]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, email)
	}
	p.DriveEmail = driveEmail
	m.profiles[email] = p
	return nil
}

func (m *MemoryStore) Close() error { return nil }
