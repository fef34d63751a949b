package middleware

import (
	"context"
	"net/http"
	"strings"

	"photosync-backend/internal/auth"
)

type contextKey string

const userKeyContextKey contextKey = "user_key"

// UserKeyFromContext returns the authenticated user key, or "" when the
// request was not authenticated.
func UserKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(userKeyContextKey).(string)
	return key
}

// AuthMiddleware validates the API bearer token and scopes the request to
// its user key. Token issuance belongs to the external session service.
type AuthMiddleware struct {
	jwt *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwtManager}
}

// Handler rejects requests without a valid bearer token.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwt.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userKeyContextKey, claims.UserKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
