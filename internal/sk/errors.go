package sk

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Match with errors.Is.
var (
	// ErrUserCancelled is returned when the user dismisses the credential picker.
	ErrUserCancelled = errors.New("sign-in cancelled by user")

	// ErrPermissionDenied is returned when the user declines the storage
	// consent screen or the provider refuses the scope.
	ErrPermissionDenied = errors.New("permission denied by user")

	// ErrNoLocalData is returned by backup when no database file exists.
	ErrNoLocalData = errors.New("no database files found")

	// ErrNotFound is reported by restore when no remote archive exists.
	// It is a neutral outcome, not a failure.
	ErrNotFound = errors.New("no backup found")

	// ErrSecurityViolation is returned when an archive entry would be
	// extracted outside its destination directory.
	ErrSecurityViolation = errors.New("archive entry escapes extraction directory")

	// ErrNoPendingResolution is returned when a resolution result arrives
	// while no operation is suspended.
	ErrNoPendingResolution = errors.New("no operation is awaiting user resolution")

	// ErrNotSignedIn is returned by commands that need a remembered identity.
	ErrNotSignedIn = errors.New("not signed in")
)

// ProviderError reports a failure inside the identity layer.
type ProviderError struct {
	Detail string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity provider: %s: %v", e.Detail, e.Err)
	}
	return "identity provider: " + e.Detail
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a detail message.
func NewProviderError(detail string, err error) *ProviderError {
	return &ProviderError{Detail: detail, Err: err}
}

// TransportError reports a network or API failure talking to the remote store.
type TransportError struct {
	Op  string // "find", "upload" or "download"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote store %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a TransportError for op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}
