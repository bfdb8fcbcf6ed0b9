package identity

import (
	"fmt"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/oauth"
	"shopkeep-go/internal/sk"
)

// NewProviderFromConfig creates an identity provider based on the identity
// config type.
func NewProviderFromConfig(cfg *config.Config, logger sk.Logger) (sk.IdentityProvider, error) {
	switch cfg.Identity.Type {
	case "google":
		if err := oauth.Validate(cfg.OAuth); err != nil {
			return nil, fmt.Errorf("google identity: %w", err)
		}
		conf := oauth.NewConfig(cfg.OAuth, oauth.ScopeOpenID, oauth.ScopeEmail)
		source := NewGoogleCredentialSource(conf, cfg.OAuth.RedirectAddr, cfg.OAuth.ConsentTimeout.Duration, logger)
		return NewAdapter(source, logger), nil
	case "static":
		if cfg.Identity.StaticEmail == "" {
			return nil, fmt.Errorf("static identity requires static_email to be set")
		}
		return NewAdapter(NewStaticCredentialSource(cfg.Identity.StaticEmail), logger), nil
	default:
		return nil, fmt.Errorf("unknown identity type: %s", cfg.Identity.Type)
	}
}
