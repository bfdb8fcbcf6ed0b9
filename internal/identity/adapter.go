// Package identity turns the credential returned by a sign-in flow into a
// stable account identity.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shopkeep-go/internal/sk"
)

// TypeGoogleIDToken tags an envelope whose data is a JSON bundle carrying
// a Google ID token.
const TypeGoogleIDToken = "com.google.android.libraries.identity.googleid.TYPE_GOOGLE_ID_TOKEN_CREDENTIAL"

// extractor pulls the account email out of one credential kind.
type extractor func(sk.Credential) (sk.Identity, error)

// Adapter implements sk.IdentityProvider on top of a CredentialSource.
type Adapter struct {
	source     sk.CredentialSource
	extractors map[sk.CredentialKind]extractor
	logger     sk.Logger
}

var _ sk.IdentityProvider = (*Adapter)(nil)

// NewAdapter creates an Adapter reading credentials from source.
func NewAdapter(source sk.CredentialSource, logger sk.Logger) *Adapter {
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	return &Adapter{
		source: source,
		extractors: map[sk.CredentialKind]extractor{
			sk.CredentialEnvelope: fromEnvelope,
			sk.CredentialDirect:   fromDirect,
		},
		logger: logger,
	}
}

// SignIn runs the credential flow and returns the account email.
func (a *Adapter) SignIn(ctx context.Context, host sk.Host) (sk.Identity, error) {
	cred, err := a.source.GetCredential(ctx, host)
	if errors.Is(err, sk.ErrUserCancelled) {
		return "", sk.ErrUserCancelled
	}
	if err != nil {
		var pe *sk.ProviderError
		if errors.As(err, &pe) {
			return "", err
		}
		return "", sk.NewProviderError("getting credential", err)
	}

	extract, ok := a.extractors[cred.Kind]
	if !ok {
		return "", sk.NewProviderError(fmt.Sprintf("unsupported credential kind %q", cred.Kind), nil)
	}
	id, err := extract(cred)
	if err != nil {
		return "", sk.NewProviderError("reading credential", err)
	}
	a.logger.Info("signed in", "account", id.String(), "credential", cred.Kind.String())
	return id, nil
}

type idTokenBundle struct {
	IDToken string `json:"id_token"`
}

func fromEnvelope(c sk.Credential) (sk.Identity, error) {
	if c.Type != TypeGoogleIDToken {
		return "", fmt.Errorf("unexpected credential type %q", c.Type)
	}
	var bundle idTokenBundle
	if err := json.Unmarshal(c.Data, &bundle); err != nil {
		return "", fmt.Errorf("decoding credential data: %w", err)
	}
	if bundle.IDToken == "" {
		return "", errors.New("credential data carries no id_token")
	}
	return EmailFromIDToken(bundle.IDToken)
}

func fromDirect(c sk.Credential) (sk.Identity, error) {
	if strings.Contains(c.ID, "@") {
		return sk.Identity(c.ID), nil
	}
	if c.IDToken == "" {
		return "", fmt.Errorf("credential id %q is not an email and no id token was provided", c.ID)
	}
	return EmailFromIDToken(c.IDToken)
}

// NewEnvelope wraps an ID token the way the Google sign-in flow returns it.
func NewEnvelope(idToken string) (sk.Credential, error) {
	data, err := json.Marshal(idTokenBundle{IDToken: idToken})
	if err != nil {
		return sk.Credential{}, fmt.Errorf("encoding credential data: %w", err)
	}
	return sk.Credential{Kind: sk.CredentialEnvelope, Type: TypeGoogleIDToken, Data: data}, nil
}
