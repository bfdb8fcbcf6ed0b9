package testutil

import (
	"context"
	"errors"
	"sync"

	"shopkeep-go/internal/sk"
)

// GrantResult is one queued reply of a StubAuthorizer.
type GrantResult struct {
	Grant sk.AccessGrant
	Err   error
}

// StubAuthorizer replies from a queue; once the queue is drained it keeps
// returning the last reply.
type StubAuthorizer struct {
	mu      sync.Mutex
	replies []GrantResult
	last    GrantResult
	calls   []sk.Identity
}

var _ sk.Authorizer = (*StubAuthorizer)(nil)

// NewStubAuthorizer creates an authorizer replying with replies in order.
func NewStubAuthorizer(replies ...GrantResult) *StubAuthorizer {
	return &StubAuthorizer{replies: replies}
}

// AlwaysGranted returns an authorizer granting every request.
func AlwaysGranted(account sk.Identity) *StubAuthorizer {
	return NewStubAuthorizer(GrantResult{Grant: sk.Granted(account, "test-token")})
}

// NeedsResolutionThenGranted returns an authorizer that first asks for
// consent through handle and grants afterwards.
func NeedsResolutionThenGranted(handle sk.ResolutionHandle) *StubAuthorizer {
	return NewStubAuthorizer(
		GrantResult{Grant: sk.NeedsResolution(handle)},
		GrantResult{Grant: sk.Granted(handle.Account, "test-token")},
	)
}

func (a *StubAuthorizer) RequestAccess(_ context.Context, _ sk.Host, id sk.Identity) (sk.AccessGrant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, id)
	if len(a.replies) > 0 {
		a.last = a.replies[0]
		a.replies = a.replies[1:]
	}
	if a.last.Err == nil && a.last.Grant.Kind == 0 {
		return sk.AccessGrant{}, errors.New("stub authorizer has no reply")
	}
	return a.last.Grant, a.last.Err
}

// Calls returns the identities access was requested for.
func (a *StubAuthorizer) Calls() []sk.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sk.Identity(nil), a.calls...)
}

// StubResolver answers every resolution with a fixed result.
type StubResolver struct {
	mu      sync.Mutex
	Granted bool
	Err     error
	handles []sk.ResolutionHandle
}

var _ sk.Resolver = (*StubResolver)(nil)

func (r *StubResolver) Resolve(_ context.Context, _ sk.Host, h sk.ResolutionHandle) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, h)
	return r.Granted, r.Err
}

// Handles returns the handles presented so far.
func (r *StubResolver) Handles() []sk.ResolutionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sk.ResolutionHandle(nil), r.handles...)
}
