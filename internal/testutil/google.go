package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

// FakeGoogle serves the OAuth token endpoint and records the exchanges.
type FakeGoogle struct {
	mu          sync.Mutex
	server      *httptest.Server
	AccessToken string
	IDToken     string
	// Status, when set, fails every token request with that HTTP status.
	Status    int
	exchanges []url.Values
}

// NewFakeGoogle starts a FakeGoogle that is shut down with the test.
func NewFakeGoogle(t *testing.T) *FakeGoogle {
	t.Helper()
	g := &FakeGoogle{AccessToken: "ya29.test-access-token"}
	g.server = httptest.NewServer(http.HandlerFunc(g.serveToken))
	t.Cleanup(g.server.Close)
	return g
}

// Endpoint returns an oauth2.Endpoint pointing at the fake.
func (g *FakeGoogle) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   g.server.URL + "/auth",
		TokenURL:  g.server.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// Config returns a client config using the fake endpoint.
func (g *FakeGoogle) Config(scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Endpoint:     g.Endpoint(),
		Scopes:       scopes,
	}
}

// Exchanges returns the form values of every token request.
func (g *FakeGoogle) Exchanges() []url.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]url.Values(nil), g.exchanges...)
}

func (g *FakeGoogle) serveToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/token" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.exchanges = append(g.exchanges, r.PostForm)
	status, access, idToken := g.Status, g.AccessToken, g.IDToken
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	if r.PostForm.Get("code_verifier") == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_request", "error_description": "missing code_verifier"})
		return
	}

	body := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   3599,
	}
	if idToken != "" {
		body["id_token"] = idToken
	}
	json.NewEncoder(w).Encode(body)
}
