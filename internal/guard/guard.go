// Package guard attaches the session credential to outgoing requests and
// ends the session when the credential expired or the server rejected it.
package guard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
	"github.com/nkiryanov/fuowallet/internal/logger"
	"github.com/nkiryanov/fuowallet/internal/session"
	"github.com/nkiryanov/fuowallet/internal/transport"
)

type sessionStore interface {
	// Credential currently persisted, false if none
	Credential(ctx context.Context) (string, bool)

	// IsValid checks credential against the store clock
	IsValid(token string) bool

	// Invalidate ends session the credential belongs to
	// Returns true if session was ended by this call
	Invalidate(ctx context.Context, credential string, reason string) bool

	IsAuthenticated() bool
}

type signInNavigator interface {
	// ToSignIn sends user to sign-in view, no-op if already there
	ToSignIn() bool
}

// New creates middleware guarding requests with the session
func New(store sessionStore, nav signInNavigator, l logger.Logger) transport.Middleware {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return transport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()

			credential, ok := store.Credential(ctx)
			if !ok {
				return next.RoundTrip(r)
			}

			if !store.IsValid(credential) {
				if r.Body != nil {
					_ = r.Body.Close()
				}

				reason := session.ReasonExpired
				if _, err := session.ParseClaims(credential); err != nil {
					reason = session.ReasonInvalid
				}

				endSession(ctx, store, nav, l, credential, reason)
				return nil, fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, apperrors.ErrCredentialExpired)
			}

			// RoundTripper must not modify the request
			r = r.Clone(ctx)
			r.Header.Set("Authorization", "Bearer "+credential)

			resp, err := next.RoundTrip(r)
			if err != nil {
				return resp, err
			}

			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				endSession(ctx, store, nav, l, credential, session.ReasonRejected)
			}

			return resp, nil
		})
	}
}

func endSession(ctx context.Context, store sessionStore, nav signInNavigator, l logger.Logger, credential string, reason string) {
	// Caller may have given up on the request, the session still has to end
	ctx = context.WithoutCancel(ctx)

	if store.Invalidate(ctx, credential, reason) {
		l.Info("Session ended by request guard", "reason", reason)
		nav.ToSignIn()
		return
	}

	// Credential was replaced by newer sign in, user stays where they are
	if store.IsAuthenticated() {
		l.Debug("Stale credential rejected, newer session kept", "reason", reason)
		return
	}
	nav.ToSignIn()
}
