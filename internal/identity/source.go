package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"shopkeep-go/internal/oauth"
	"shopkeep-go/internal/sk"
)

// GoogleCredentialSource signs the user in through the browser and returns
// the resulting ID token as an envelope credential.
type GoogleCredentialSource struct {
	flow *oauth.Flow
}

var _ sk.CredentialSource = (*GoogleCredentialSource)(nil)

// NewGoogleCredentialSource creates a source for conf, which should request
// the openid and email scopes.
func NewGoogleCredentialSource(conf *oauth2.Config, addr string, timeout time.Duration, logger sk.Logger) *GoogleCredentialSource {
	return &GoogleCredentialSource{flow: oauth.NewFlow(conf, addr, timeout, logger)}
}

func (s *GoogleCredentialSource) GetCredential(ctx context.Context, host sk.Host) (sk.Credential, error) {
	tok, err := s.flow.Authorize(ctx, host, oauth2.SetAuthURLParam("prompt", "select_account"))
	if errors.Is(err, oauth.ErrConsentDenied) {
		return sk.Credential{}, sk.ErrUserCancelled
	}
	if err != nil {
		return sk.Credential{}, sk.NewProviderError("google sign-in", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return sk.Credential{}, sk.NewProviderError("google sign-in returned no id token", nil)
	}
	return NewEnvelope(idToken)
}

// StaticCredentialSource returns a direct credential for a configured
// account without any user interaction.
type StaticCredentialSource struct {
	email string
}

var _ sk.CredentialSource = (*StaticCredentialSource)(nil)

func NewStaticCredentialSource(email string) *StaticCredentialSource {
	return &StaticCredentialSource{email: email}
}

func (s *StaticCredentialSource) GetCredential(context.Context, sk.Host) (sk.Credential, error) {
	if s.email == "" {
		return sk.Credential{}, sk.NewProviderError("static identity has no email configured", nil)
	}
	return sk.Credential{Kind: sk.CredentialDirect, ID: s.email, DisplayName: s.email}, nil
}
