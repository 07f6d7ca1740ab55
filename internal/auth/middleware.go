package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Darkthan/AffichApp/internal/models"
	pkghttp "github.com/Darkthan/AffichApp/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// UserContextKey is the key for storing the authenticated user in context
const UserContextKey contextKey = "user"

// UserFetcher loads the user record a verified token points at. The stored
// record, not the token, is the authority on the user's current role.
type UserFetcher interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// RequireAuth validates the bearer token, resolves the user it names, and
// injects the safe user projection into the request context. Every failure
// mode is a 401; the reason is not disclosed.
func RequireAuth(tm *TokenManager, users UserFetcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			claims, err := tm.Validate(token)
			if err != nil || claims.UserID == 0 {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user.ToResponse())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces role-based access control. Must be used after
// RequireAuth.
func RequireRole(role models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}
			if user.Role != role {
				pkghttp.WriteForbidden(w, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) *models.UserResponse {
	user, ok := r.Context().Value(UserContextKey).(*models.UserResponse)
	if !ok {
		return nil
	}
	return user
}
