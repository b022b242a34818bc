// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	xlog "github.com/UniSotonLibrary/libguides-learning-objects/internal/log"
)

type codeResult struct {
	code string
	err  error
}

// awaitCode runs a loopback HTTP listener on 127.0.0.1:port, prints the
// authorize URL for the operator, and blocks until the redirect delivers a
// code, the context is cancelled, or the listener fails. The listener is
// shut down on every exit path.
func awaitCode(ctx context.Context, port int, state, authURL string) (string, error) {
	logger := xlog.WithComponentFromContext(ctx, "auth")

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return "", fmt.Errorf("auth: redirect listener on port %d: %w", port, err)
	}

	results := make(chan codeResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirectPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "authorization failed", http.StatusBadRequest)
			results <- codeResult{err: fmt.Errorf("auth: server denied authorization: %s", errCode)}
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- codeResult{err: errors.New("auth: state mismatch on redirect")}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			results <- codeResult{err: errors.New("auth: redirect missing authorization code")}
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
		results <- codeResult{code: code}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("event", "auth.authorize").
		Str("url", authURL).
		Msg("open this URL in a browser and sign in")
	fmt.Println("Open the following URL in a browser to authorize this application:")
	fmt.Println(authURL)

	select {
	case res := <-results:
		return res.code, res.err
	case err := <-serveErr:
		return "", fmt.Errorf("auth: redirect listener: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
