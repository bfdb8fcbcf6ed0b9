package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopkeep-go/internal/sk"
)

// StubIdentityProvider returns a fixed identity or error.
type StubIdentityProvider struct {
	mu       sync.Mutex
	Identity sk.Identity
	Err      error
	calls    int
}

var _ sk.IdentityProvider = (*StubIdentityProvider)(nil)

// NewStubIdentityProvider creates a provider that signs in as id.
func NewStubIdentityProvider(id sk.Identity) *StubIdentityProvider {
	return &StubIdentityProvider{Identity: id}
}

func (p *StubIdentityProvider) SignIn(context.Context, sk.Host) (sk.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.Err != nil {
		return "", p.Err
	}
	return p.Identity, nil
}

// Calls returns how often SignIn was called.
func (p *StubIdentityProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// StubCredentialSource returns a fixed credential or error.
type StubCredentialSource struct {
	Credential sk.Credential
	Err        error
}

var _ sk.CredentialSource = (*StubCredentialSource)(nil)

func (s *StubCredentialSource) GetCredential(context.Context, sk.Host) (sk.Credential, error) {
	if s.Err != nil {
		return sk.Credential{}, s.Err
	}
	return s.Credential, nil
}

// MintIDToken signs an HS256 ID token carrying the email claim. The
// signature is never verified by the code under test.
func MintIDToken(t *testing.T, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": "https://accounts.google.com",
		"sub": "1234567890",
		"aud": "test-client",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if email != "" {
		claims["email"] = email
		claims["email_verified"] = true
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign id token: %v", err)
	}
	return signed
}
