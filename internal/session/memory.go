package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shopkeep-go/internal/sk"
)

// MemoryStore is an in-memory Store. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	identity sk.Identity
	ops      []*Operation
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveIdentity(_ context.Context, id sk.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
	return nil
}

func (m *MemoryStore) Identity(context.Context) (sk.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.identity != "", nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = ""
	return nil
}

func (m *MemoryStore) StartOperation(_ context.Context, operation, account string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op := &Operation{
		ID:        int64(len(m.ops) + 1),
		Operation: operation,
		Account:   account,
		StartedAt: at.UTC(),
		Status:    StatusRunning,
	}
	m.ops = append(m.ops, op)
	return op.ID, nil
}

func (m *MemoryStore) FinishOperation(_ context.Context, id int64, status, detail string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.ops) {
		return fmt.Errorf("operation %d not found", id)
	}
	op := m.ops[id-1]
	finished := at.UTC()
	op.FinishedAt = &finished
	op.Status = status
	op.Detail = detail
	return nil
}

func (m *MemoryStore) ListOperations(_ context.Context, limit int) ([]*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Operation
	for i := len(m.ops) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.ops[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
