package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shopkeep-go/internal/sk"
)

const shutdownTimeout = 2 * time.Second

type callback struct {
	state string
	code  string
	err   error
}

// Receiver serves the loopback redirect and hands the first matching
// callback to Wait.
type Receiver struct {
	listener net.Listener
	server   *http.Server
	results  chan callback
	logger   sk.Logger
}

// Listen starts a Receiver on addr. Use port 0 to pick a free port.
func Listen(addr string, logger sk.Logger) (*Receiver, error) {
	if logger == nil {
		logger = sk.NewNopLogger()
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	r := &Receiver{
		listener: l,
		results:  make(chan callback, 1),
		logger:   logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get(CallbackPath, r.handleCallback)

	r.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := r.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("oauth receiver stopped", "error", err)
		}
	}()
	return r, nil
}

// Addr returns the address the receiver listens on.
func (r *Receiver) Addr() string {
	return r.listener.Addr().String()
}

// RedirectURL returns the callback URL served by this receiver.
func (r *Receiver) RedirectURL() string {
	return RedirectURL(r.Addr())
}

func (r *Receiver) handleCallback(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	cb := callback{state: q.Get("state"), code: q.Get("code")}
	if e := q.Get("error"); e != "" {
		cb.err = callbackError(e, q.Get("error_description"))
	} else if cb.code == "" {
		cb.err = errors.New("authorization response carries no code")
	}

	select {
	case r.results <- cb:
	default:
		r.logger.Warn("dropping extra oauth callback")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if cb.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "Authorization was not completed. You can close this window.")
		return
	}
	fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
}

// Wait blocks until a callback for state arrives or ctx is done. Callbacks
// carrying another state are ignored.
func (r *Receiver) Wait(ctx context.Context, state string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
		case cb := <-r.results:
			if cb.state != state {
				r.logger.Warn("ignoring oauth callback with unexpected state")
				continue
			}
			if cb.err != nil {
				return "", cb.err
			}
			return cb.code, nil
		}
	}
}

// Close stops the server.
func (r *Receiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return r.server.Shutdown(ctx)
}
