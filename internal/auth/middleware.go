package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tmcnulty/registrar/internal/models"
	pkghttp "github.com/tmcnulty/registrar/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing session claims in context
	UserContextKey contextKey = "user"
)

// UserRepository is the subset of user storage the middleware needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Middleware validates session tokens on protected routes and injects the
// claims into the request context. Tokens issued before the user's last
// password change are rejected, which revokes outstanding sessions after a
// password reset.
func Middleware(tm *TokenManager, userRepo UserRepository) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tm.ValidateSessionToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "invalid or expired token")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
				claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces role-based access. The role is re-read from the
// database rather than trusted from the token.
func RequireRole(userRepo UserRepository, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "unauthorized")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if user.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts session claims from the request context
func GetUserFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
