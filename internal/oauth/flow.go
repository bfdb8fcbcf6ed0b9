package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"shopkeep-go/internal/sk"
)

// Flow runs a complete browser round trip: it opens the consent URL
// through the host, waits for the redirect and exchanges the code.
type Flow struct {
	conf    *oauth2.Config
	addr    string
	timeout time.Duration
	logger  sk.Logger
}

// NewFlow creates a Flow listening on addr. A zero timeout waits on ctx only.
func NewFlow(conf *oauth2.Config, addr string, timeout time.Duration, logger sk.Logger) *Flow {
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	return &Flow{conf: conf, addr: addr, timeout: timeout, logger: logger}
}

// Authorize runs the flow with PKCE and returns the token.
func (f *Flow) Authorize(ctx context.Context, host sk.Host, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	rec, err := Listen(f.addr, f.logger)
	if err != nil {
		return nil, err
	}
	defer rec.Close()

	conf := *f.conf
	conf.RedirectURL = rec.RedirectURL()

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL(state, append(opts, oauth2.S256ChallengeOption(verifier))...)

	if err := host.OpenURL(ctx, authURL); err != nil {
		return nil, fmt.Errorf("opening authorization page: %w", err)
	}

	return Exchange(ctx, &conf, rec, state, verifier, f.timeout)
}

// Exchange waits on rec for the callback matching state and trades the
// code for a token. timeout bounds the wait when positive.
func Exchange(ctx context.Context, conf *oauth2.Config, rec *Receiver, state, verifier string, timeout time.Duration) (*oauth2.Token, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	code, err := rec.Wait(waitCtx, state)
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}
