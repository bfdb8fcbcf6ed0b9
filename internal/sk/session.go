package sk

import "context"

// SessionStore remembers the last signed-in identity between runs.
type SessionStore interface {
	SaveIdentity(ctx context.Context, id Identity) error
	// Identity returns false when nobody is signed in.
	Identity(ctx context.Context) (Identity, bool, error)
	Clear(ctx context.Context) error
}
