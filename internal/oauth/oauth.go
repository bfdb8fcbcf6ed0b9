// Package oauth runs the browser half of Google's installed-app OAuth flow:
// it builds the client config and receives the authorization code on a
// loopback redirect.
package oauth

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"shopkeep-go/internal/config"
)

// CallbackPath is where the loopback receiver expects the redirect.
const CallbackPath = "/callback"

// Sign-in scopes.
const (
	ScopeOpenID = "openid"
	ScopeEmail  = "email"
)

// Errors reported by the authorization endpoint through the redirect.
var (
	// ErrConsentDenied is returned when the user declined the consent screen.
	ErrConsentDenied = errors.New("consent denied")

	// ErrAccessBlocked is returned when the account is not allowed to grant
	// the scope, for example by a workspace administrator policy.
	ErrAccessBlocked = errors.New("access blocked for account")
)

// NewConfig builds an oauth2.Config for the Google endpoint with the
// loopback redirect derived from cfg.RedirectAddr.
func NewConfig(cfg config.OAuthConfig, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  RedirectURL(cfg.RedirectAddr),
		Scopes:       scopes,
	}
}

// RedirectURL returns the loopback callback URL for addr.
func RedirectURL(addr string) string {
	return "http://" + addr + CallbackPath
}

// Validate reports whether cfg has what the Google flows need.
func Validate(cfg config.OAuthConfig) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("oauth client_id is not configured")
	}
	host, _, err := net.SplitHostPort(cfg.RedirectAddr)
	if err != nil {
		return fmt.Errorf("invalid oauth redirect_addr %q: %w", cfg.RedirectAddr, err)
	}
	if host != "127.0.0.1" && host != "localhost" && host != "::1" {
		return fmt.Errorf("oauth redirect_addr must be a loopback address, got %q", host)
	}
	return nil
}

// callbackError maps the redirect's error parameter to an error.
func callbackError(code, description string) error {
	detail := code
	if description != "" {
		detail = code + ": " + description
	}
	switch {
	case code == "access_denied":
		return fmt.Errorf("%w (%s)", ErrConsentDenied, detail)
	case code == "admin_policy_enforced", code == "org_internal", strings.HasPrefix(code, "disallowed"):
		return fmt.Errorf("%w (%s)", ErrAccessBlocked, detail)
	default:
		return fmt.Errorf("authorization failed: %s", detail)
	}
}
