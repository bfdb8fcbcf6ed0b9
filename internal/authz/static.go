package authz

import (
	"context"
	"errors"

	"shopkeep-go/internal/sk"
)

// StaticAuthorizer grants every request without a token. It serves the
// vault backends that do not use Google credentials.
type StaticAuthorizer struct{}

var (
	_ sk.Authorizer = StaticAuthorizer{}
	_ sk.Resolver   = StaticAuthorizer{}
)

func (StaticAuthorizer) RequestAccess(_ context.Context, _ sk.Host, identity sk.Identity) (sk.AccessGrant, error) {
	if identity == "" {
		return sk.AccessGrant{}, errors.New("requesting access: empty identity")
	}
	return sk.Granted(identity, ""), nil
}

// Resolve is never needed; it reports an approval.
func (StaticAuthorizer) Resolve(context.Context, sk.Host, sk.ResolutionHandle) (bool, error) {
	return true, nil
}
