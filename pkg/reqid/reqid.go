// Package reqid tags every request with a correlation ID. The ID rides the
// request context and the X-Request-ID header, and the logging middleware
// stamps it onto every line written while handling that request.
package reqid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

// Header carries the request ID between services.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a random 32-character hex ID.
func New() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// WithValue returns ctx carrying id.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx returns the request ID in ctx, or "" when there is none.
func FromCtx(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware ensures every request has an ID. An X-Request-ID sent by the
// client (or an upstream proxy) is kept so traces line up across services;
// otherwise a fresh one is generated. The ID is echoed in the response
// header and available downstream via FromCtx.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" {
				id = New()
			}
			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), id)))
		})
	}
}
