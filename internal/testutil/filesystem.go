package testutil

import (
	"fmt"
	"path/filepath"
	"sync"

	"shopkeep-go/internal/fs"
	"shopkeep-go/internal/sk"
)

// RecordingFilesystemManager performs real file operations and records
// them. Failures can be injected per operation and base name.
type RecordingFilesystemManager struct {
	mu       sync.Mutex
	os       *fs.OSFilesystemManager
	calls    []string
	failures map[string]error // "op:basename" -> error
}

var _ sk.FilesystemManager = (*RecordingFilesystemManager)(nil)

// NewRecordingFilesystemManager creates a RecordingFilesystemManager.
func NewRecordingFilesystemManager() *RecordingFilesystemManager {
	return &RecordingFilesystemManager{
		os:       fs.NewOSFilesystemManager(),
		failures: make(map[string]error),
	}
}

// FailOn makes op ("copy", "remove" or "removeall") fail with err when the
// target's base name is base.
func (m *RecordingFilesystemManager) FailOn(op, base string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+base] = err
}

// Calls returns the recorded operations as "op basename" strings.
func (m *RecordingFilesystemManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *RecordingFilesystemManager) record(op, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := filepath.Base(path)
	m.calls = append(m.calls, op+" "+base)
	if err := m.failures[op+":"+base]; err != nil {
		return fmt.Errorf("%s %s: %w", op, base, err)
	}
	return nil
}

func (m *RecordingFilesystemManager) Exists(path string) bool {
	return m.os.Exists(path)
}

func (m *RecordingFilesystemManager) CopyFile(src, dst string) error {
	if err := m.record("copy", dst); err != nil {
		return err
	}
	return m.os.CopyFile(src, dst)
}

func (m *RecordingFilesystemManager) Remove(path string) error {
	if err := m.record("remove", path); err != nil {
		return err
	}
	return m.os.Remove(path)
}

func (m *RecordingFilesystemManager) RemoveAll(path string) error {
	if err := m.record("removeall", path); err != nil {
		return err
	}
	return m.os.RemoveAll(path)
}
