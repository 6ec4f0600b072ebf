package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/adityaraj/bazario/pkg/cache"
	"github.com/adityaraj/bazario/pkg/crypt"
	"github.com/adityaraj/bazario/pkg/response"
)

type userIDKey struct{}
type tokenKey struct{}

// revokedKey is the Redis key holding a logged-out token's denylist entry.
func revokedKey(token string) string { return "bazario:revoked:" + crypt.Hash(token) }

// Auth returns middleware that authenticates requests with a bearer token.
// verify is the token verifier (auth.Issuer.Verify); on success the subject
// user ID and the raw token are stored in the request context.
//
// Tokens that have been revoked via logout are rejected even when their
// signature and expiry are still valid.
func Auth(verify func(token string) (uint, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				response.Unauthorized(w)
				return
			}

			if cache.Has(revokedKey(token)) {
				response.Unauthorized(w)
				return
			}

			userID, err := verify(token)
			if err != nil {
				response.Unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			ctx = context.WithValue(ctx, tokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromCtx returns the authenticated user ID stored by Auth.
func UserIDFromCtx(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(userIDKey{}).(uint)
	return id, ok
}

// TokenFromCtx returns the raw bearer token stored by Auth.
func TokenFromCtx(r *http.Request) (string, bool) {
	t, ok := r.Context().Value(tokenKey{}).(string)
	return t, ok
}

// RevokeToken denylists a token until ttl elapses, at which point the token
// has expired on its own anyway. Only a hash of the token is stored.
func RevokeToken(token string, ttl time.Duration) error {
	return cache.Set(revokedKey(token), true, ttl)
}
