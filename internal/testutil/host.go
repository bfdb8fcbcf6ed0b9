package testutil

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"shopkeep-go/internal/sk"
)

// StubHost records opened URLs without acting on them.
type StubHost struct {
	mu     sync.Mutex
	Err    error
	opened []string
}

var _ sk.Host = (*StubHost)(nil)

func (h *StubHost) OpenURL(_ context.Context, u string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = append(h.opened, u)
	return h.Err
}

// Opened returns the URLs opened so far.
func (h *StubHost) Opened() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

// BrowserHost plays the user in a browser: for every opened authorization
// URL it calls the redirect_uri with either a code or CallbackError.
type BrowserHost struct {
	mu            sync.Mutex
	Code          string
	CallbackError string
	// State overrides the state echoed back when set.
	State  string
	opened []*url.URL
}

var _ sk.Host = (*BrowserHost)(nil)

// NewBrowserHost creates a host that approves with code "test-code".
func NewBrowserHost() *BrowserHost {
	return &BrowserHost{Code: "test-code"}
}

func (h *BrowserHost) OpenURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing authorization url: %w", err)
	}

	h.mu.Lock()
	h.opened = append(h.opened, u)
	code, cbErr, state := h.Code, h.CallbackError, h.State
	h.mu.Unlock()

	q := u.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("authorization url has no usable redirect_uri: %q", q.Get("redirect_uri"))
	}
	if state == "" {
		state = q.Get("state")
	}

	params := url.Values{"state": {state}}
	if cbErr != "" {
		params.Set("error", cbErr)
	} else {
		params.Set("code", code)
	}
	redirect.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, redirect.String(), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling redirect: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Opened returns the authorization URLs opened so far.
func (h *BrowserHost) Opened() []*url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*url.URL(nil), h.opened...)
}

// FreeLoopbackAddr returns a loopback address with a port that was free
// when the function ran.
func FreeLoopbackAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}
