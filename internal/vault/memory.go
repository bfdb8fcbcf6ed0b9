package vault

import (
	"context"
	"fmt"
	"os"
	"sync"

	"shopkeep-go/internal/sk"
)

// MemoryObject is an object stored in a MemoryVault.
type MemoryObject struct {
	ID      string
	Name    string
	Trashed bool
	Data    []byte
}

// CallCounts records how often each remote call was made.
type CallCounts struct {
	Finds     int
	Creates   int
	Updates   int
	Downloads int
}

// MemoryVault is an in-memory implementation of the Vault interface.
// Objects are kept per account in creation order, making it useful for
// testing. This implementation is safe for concurrent use.
type MemoryVault struct {
	mu       sync.RWMutex
	accounts map[sk.Identity][]*MemoryObject
	nextID   int
	calls    CallCounts
	failures map[string]error // "find", "upload", "download" -> error
}

// NewMemoryVault creates a new, empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		accounts: make(map[sk.Identity][]*MemoryObject),
		failures: make(map[string]error),
	}
}

// FindBackupObject returns the first non-trashed object named backup.zip.
func (m *MemoryVault) FindBackupObject(_ context.Context, grant sk.AccessGrant) (*sk.RemoteHandle, error) {
	if err := requireGrant("find", grant); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Finds++
	if err := m.failures["find"]; err != nil {
		return nil, sk.NewTransportError("find", err)
	}

	for _, obj := range m.accounts[grant.Account] {
		if obj.Name == sk.BackupObjectName && !obj.Trashed {
			return &sk.RemoteHandle{ID: obj.ID}, nil
		}
	}
	return nil, nil
}

// Upload replaces existing's content, or creates a new object.
func (m *MemoryVault) Upload(_ context.Context, grant sk.AccessGrant, localArchive string, existing *sk.RemoteHandle) (sk.RemoteHandle, error) {
	if err := requireGrant("upload", grant); err != nil {
		return sk.RemoteHandle{}, err
	}
	data, err := os.ReadFile(localArchive)
	if err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", fmt.Errorf("reading archive: %w", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing != nil {
		m.calls.Updates++
	} else {
		m.calls.Creates++
	}
	if err := m.failures["upload"]; err != nil {
		return sk.RemoteHandle{}, sk.NewTransportError("upload", err)
	}

	if existing != nil {
		obj := m.lookup(grant.Account, existing.ID)
		if obj == nil {
			return sk.RemoteHandle{}, sk.NewTransportError("upload", fmt.Errorf("object not found: %s", existing.ID))
		}
		obj.Data = data
		return *existing, nil
	}

	obj := m.add(grant.Account, sk.BackupObjectName, data, false)
	return sk.RemoteHandle{ID: obj.ID}, nil
}

// Download writes the object's content to dest.
func (m *MemoryVault) Download(_ context.Context, grant sk.AccessGrant, handle sk.RemoteHandle, dest string) error {
	if err := requireGrant("download", grant); err != nil {
		return err
	}

	m.mu.Lock()
	m.calls.Downloads++
	failure := m.failures["download"]
	obj := m.lookup(grant.Account, handle.ID)
	var data []byte
	if obj != nil {
		data = append([]byte(nil), obj.Data...)
	}
	m.mu.Unlock()

	if failure != nil {
		return sk.NewTransportError("download", failure)
	}
	if obj == nil {
		return sk.NewTransportError("download", fmt.Errorf("object not found: %s", handle.ID))
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return sk.NewTransportError("download", fmt.Errorf("writing %s: %w", dest, err))
	}
	return nil
}

// Seed stores an object directly, bypassing the call counters.
func (m *MemoryVault) Seed(account sk.Identity, name string, data []byte, trashed bool) sk.RemoteHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := m.add(account, name, data, trashed)
	return sk.RemoteHandle{ID: obj.ID}
}

// Objects returns a copy of the account's objects in creation order.
func (m *MemoryVault) Objects(account sk.Identity) []MemoryObject {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MemoryObject, 0, len(m.accounts[account]))
	for _, obj := range m.accounts[account] {
		cp := *obj
		cp.Data = append([]byte(nil), obj.Data...)
		out = append(out, cp)
	}
	return out
}

// Calls returns the call counters.
func (m *MemoryVault) Calls() CallCounts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Fail makes every later op ("find", "upload" or "download") fail with err.
// A nil err clears the failure.
func (m *MemoryVault) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemoryVault) add(account sk.Identity, name string, data []byte, trashed bool) *MemoryObject {
	m.nextID++
	obj := &MemoryObject{
		ID:      fmt.Sprintf("obj-%d", m.nextID),
		Name:    name,
		Trashed: trashed,
		Data:    append([]byte(nil), data...),
	}
	m.accounts[account] = append(m.accounts[account], obj)
	return obj
}

func (m *MemoryVault) lookup(account sk.Identity, id string) *MemoryObject {
	for _, obj := range m.accounts[account] {
		if obj.ID == id {
			return obj
		}
	}
	return nil
}

// Compile-time check that MemoryVault implements sk.Vault interface
var _ sk.Vault = (*MemoryVault)(nil)
