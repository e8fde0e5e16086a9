package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pmayland/taskboard/internal/domain"
	context_ "github.com/pmayland/taskboard/internal/infra/context"
	"github.com/pmayland/taskboard/internal/infra/logging"
)

// SessionValidator resolves a session token to the identity it was issued
// for. Implemented by the auth service; every lookup is an explicit store
// call, there is no in-process session cache.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (domain.Identity, bool, error)
}

// SessionToken extracts the session token from the request cookie.
// Returns the token and true, or empty string and false when the cookie is
// absent or blank.
func SessionToken(r *http.Request, cookieName string) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", false
	}

	return cookie.Value, true
}

func resolveIdentity(
	r *http.Request,
	sessions SessionValidator,
	cookieName string,
	log logging.Logger,
) (domain.Identity, bool) {
	token, ok := SessionToken(r, cookieName)
	if !ok {
		return domain.Identity{}, false
	}

	identity, ok, err := sessions.ValidateSession(r.Context(), token)
	if err != nil {
		log.ErrorContext(r.Context(), "validate session failed", "error", err)

		return domain.Identity{}, false
	}

	return identity, ok
}

// SessionPageMiddleware gates browser page routes behind a valid session.
// Requests without one are redirected to the login page; on success the
// identity is attached to the request context.
func SessionPageMiddleware(
	next http.Handler,
	sessions SessionValidator,
	cookieName string,
	loginURL string,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := resolveIdentity(r, sessions, cookieName, log)
		if !ok {
			http.Redirect(w, r, loginURL, http.StatusFound)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithIdentity(r.Context(), identity)))
	})
}

// SessionAPIMiddleware gates JSON API routes behind a valid session.
// Requests without one receive a structured 401 instead of a redirect.
func SessionAPIMiddleware(
	next http.Handler,
	sessions SessionValidator,
	cookieName string,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := resolveIdentity(r, sessions, cookieName, log)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			//nolint:errcheck
			json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated"})

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithIdentity(r.Context(), identity)))
	})
}
