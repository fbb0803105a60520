package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/repository"
)

// UserStore is the narrow slice of the credential store the pipeline needs.
type UserStore interface {
	// GetByID retrieves a user by ID. Must return repository.ErrNotFound
	// when the ID no longer resolves.
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// FailureObserver receives rejection events from the pipeline, labeled by the
// stage that rejected. A nil observer disables reporting.
type FailureObserver interface {
	ObserveAuthFailure(reason string)
}

// Middleware returns the access control pipeline. For every request it
// produces an authenticated, authorized principal in the request context or
// rejects with a specific failure, in this order:
//
//  1. extract the bearer token from the Authorization header (401 if absent
//     or missing the "Bearer " prefix)
//  2. verify the token signature and expiry (401, no store access)
//  3. re-fetch the user record by ID (401 if the user no longer exists)
//  4. reject blocked accounts (403) - this is why step 3 re-reads live state
//     instead of trusting the token payload: blocking must take effect
//     immediately for already-issued tokens, without a revocation list
//  5. attach the principal built from the freshly read record, not from the
//     token's embedded role
//
// The pipeline performs exactly one store read beyond token verification and
// never retries: a store failure surfaces as an internal error.
func Middleware(tokens *TokenService, users UserStore, observer FailureObserver, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "auth").Logger()
	observe := func(reason string) {
		if observer != nil {
			observer.ObserveAuthFailure(reason)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				observe("missing_token")
				writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
				return
			}

			identity, err := tokens.Verify(tokenString)
			if err != nil {
				observe("invalid_token")
				writeError(w, http.StatusUnauthorized, domain.ErrInvalidToken.Error())
				return
			}

			user, err := users.GetByID(r.Context(), identity.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					observe("unknown_user")
					writeError(w, http.StatusUnauthorized, domain.ErrUserNotFound.Error())
					return
				}
				log.Error().Err(err).Int64("user_id", identity.UserID).Msg("failed to load user during authorization")
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !user.CanAuthorize() {
				observe("blocked")
				writeError(w, http.StatusForbidden, domain.ErrUserBlocked.Error())
				return
			}

			principal := domain.Principal{UserID: user.ID, Role: user.Role}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin gates a route on the admin role. It must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, domain.ErrMissingToken.Error())
			return
		}
		if !principal.IsAdmin() {
			writeError(w, http.StatusForbidden, "access denied: admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// writeError writes the standard {"error": message} body. The auth package
// keeps its own copy to avoid depending on the handler package.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
