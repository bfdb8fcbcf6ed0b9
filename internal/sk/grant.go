package sk

import "context"

// DriveAppDataScope is the single storage scope requested by the authorizer.
const DriveAppDataScope = "https://www.googleapis.com/auth/drive.appdata"

// GrantKind tags an AccessGrant.
type GrantKind int

const (
	GrantGranted GrantKind = iota + 1
	GrantNeedsResolution
	GrantDenied
)

func (k GrantKind) String() string {
	switch k {
	case GrantGranted:
		return "granted"
	case GrantNeedsResolution:
		return "needs_resolution"
	case GrantDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// ResolutionHandle is an opaque consent-screen trigger. The host presents
// it and reports back whether the user approved.
type ResolutionHandle struct {
	ID      string
	Account Identity
	URL     string
}

// AccessGrant is the result of one authorization attempt.
// Token is short-lived and must be used promptly; it is never persisted.
type AccessGrant struct {
	Kind       GrantKind
	Account    Identity
	Token      string
	Resolution *ResolutionHandle
}

// Granted returns a usable grant for account.
func Granted(account Identity, token string) AccessGrant {
	return AccessGrant{Kind: GrantGranted, Account: account, Token: token}
}

// NeedsResolution returns a grant that requires the user to act on h.
func NeedsResolution(h ResolutionHandle) AccessGrant {
	return AccessGrant{Kind: GrantNeedsResolution, Account: h.Account, Resolution: &h}
}

// Denied returns a refused grant for account.
func Denied(account Identity) AccessGrant {
	return AccessGrant{Kind: GrantDenied, Account: account}
}

// Authorizer requests the storage scope for an identity.
type Authorizer interface {
	// RequestAccess returns a fresh grant. Provider failures are returned
	// as errors; a consent requirement is a NeedsResolution grant.
	RequestAccess(ctx context.Context, host Host, identity Identity) (AccessGrant, error)
}

// Resolver is the host-side facility that presents a ResolutionHandle and
// waits for the user's answer.
type Resolver interface {
	Resolve(ctx context.Context, host Host, handle ResolutionHandle) (bool, error)
}
