// Package authz obtains the drive.appdata storage grant for a signed-in
// account.
package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"shopkeep-go/internal/oauth"
	"shopkeep-go/internal/sk"
)

type pendingConsent struct {
	handle   sk.ResolutionHandle
	state    string
	verifier string
}

// GoogleAuthorizer asks Google for the drive.appdata scope. A request for
// an account without a fresh token yields a NeedsResolution grant whose
// handle the host resolves with Resolve; the token obtained there is handed
// out exactly once by the next RequestAccess.
type GoogleAuthorizer struct {
	conf    *oauth2.Config
	addr    string
	timeout time.Duration
	ids     sk.IDGenerator
	logger  sk.Logger

	mu      sync.Mutex
	pending map[string]pendingConsent
	tokens  map[sk.Identity]string
	blocked map[sk.Identity]bool
}

var (
	_ sk.Authorizer = (*GoogleAuthorizer)(nil)
	_ sk.Resolver   = (*GoogleAuthorizer)(nil)
)

// NewGoogleAuthorizer creates an authorizer for the client in conf. The
// scope and the loopback redirect on addr are set here.
func NewGoogleAuthorizer(conf *oauth2.Config, addr string, timeout time.Duration, ids sk.IDGenerator, logger sk.Logger) *GoogleAuthorizer {
	c := *conf
	c.Scopes = []string{sk.DriveAppDataScope}
	c.RedirectURL = oauth.RedirectURL(addr)
	if ids == nil {
		ids = sk.UUIDGenerator{}
	}
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	return &GoogleAuthorizer{
		conf:    &c,
		addr:    addr,
		timeout: timeout,
		ids:     ids,
		logger:  logger,
		pending: make(map[string]pendingConsent),
		tokens:  make(map[sk.Identity]string),
		blocked: make(map[sk.Identity]bool),
	}
}

// RequestAccess returns Granted when a consent for identity completed in
// this process, Denied when the provider blocked the account, and
// NeedsResolution otherwise.
func (a *GoogleAuthorizer) RequestAccess(_ context.Context, _ sk.Host, identity sk.Identity) (sk.AccessGrant, error) {
	if identity == "" {
		return sk.AccessGrant{}, errors.New("requesting access: empty identity")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.blocked[identity] {
		return sk.Denied(identity), nil
	}
	if tok, ok := a.tokens[identity]; ok {
		delete(a.tokens, identity)
		return sk.Granted(identity, tok), nil
	}

	state := a.ids.New()
	verifier := oauth2.GenerateVerifier()
	handle := sk.ResolutionHandle{
		ID:      a.ids.New(),
		Account: identity,
		URL: a.conf.AuthCodeURL(state,
			oauth2.S256ChallengeOption(verifier),
			oauth2.SetAuthURLParam("login_hint", identity.String()),
			oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		),
	}
	a.pending[handle.ID] = pendingConsent{handle: handle, state: state, verifier: verifier}
	a.logger.Debug("storage consent required", "account", identity.String(), "handle", handle.ID)
	return sk.NeedsResolution(handle), nil
}

// Resolve opens the consent page and waits for the redirect. It returns
// false when the user declined or the account is blocked.
func (a *GoogleAuthorizer) Resolve(ctx context.Context, host sk.Host, handle sk.ResolutionHandle) (bool, error) {
	a.mu.Lock()
	p, ok := a.pending[handle.ID]
	delete(a.pending, handle.ID)
	a.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("unknown resolution handle %q", handle.ID)
	}

	rec, err := oauth.Listen(a.addr, a.logger)
	if err != nil {
		return false, err
	}
	defer rec.Close()

	if err := host.OpenURL(ctx, p.handle.URL); err != nil {
		return false, fmt.Errorf("opening consent page: %w", err)
	}

	tok, err := oauth.Exchange(ctx, a.conf, rec, p.state, p.verifier, a.timeout)
	switch {
	case errors.Is(err, oauth.ErrConsentDenied):
		a.logger.Info("storage consent declined", "account", p.handle.Account.String())
		return false, nil
	case errors.Is(err, oauth.ErrAccessBlocked):
		a.logger.Warn("storage access blocked", "account", p.handle.Account.String(), "error", err)
		a.mu.Lock()
		a.blocked[p.handle.Account] = true
		a.mu.Unlock()
		return false, nil
	case err != nil:
		return false, err
	}

	a.mu.Lock()
	a.tokens[p.handle.Account] = tok.AccessToken
	a.mu.Unlock()
	return true, nil
}
