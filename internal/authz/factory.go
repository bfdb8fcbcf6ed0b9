package authz

import (
	"fmt"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/oauth"
	"shopkeep-go/internal/sk"
)

// Authorizer is an sk.Authorizer that can also resolve its own handles.
type Authorizer interface {
	sk.Authorizer
	sk.Resolver
}

// NewAuthorizerFromConfig picks the authorizer matching the vault type:
// the Drive vault needs a Google grant, the others do not.
func NewAuthorizerFromConfig(cfg *config.Config, logger sk.Logger) (Authorizer, error) {
	if cfg.Vault.Type != "drive" {
		return StaticAuthorizer{}, nil
	}
	if err := oauth.Validate(cfg.OAuth); err != nil {
		return nil, fmt.Errorf("drive authorization: %w", err)
	}
	conf := oauth.NewConfig(cfg.OAuth)
	return NewGoogleAuthorizer(conf, cfg.OAuth.RedirectAddr, cfg.OAuth.ConsentTimeout.Duration, nil, logger), nil
}
