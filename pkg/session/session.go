// Package session keeps a small server-side state bag per browser, stored in
// Redis and referenced by a cookie. The storefront uses it as the companion
// session that logout invalidates.
//
//	r.Use(session.Middleware(session.DefaultOptions()))
//
//	sess := session.FromCtx(r)
//	sess.Set("user_id", 42)
//	sess.Save(w)
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adityaraj/bazario/pkg/cache"
)

// Options controls the cookie and the Redis TTL.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

// DefaultOptions suits local development; set Secure in production.
func DefaultOptions() Options {
	return Options{
		CookieName: "bazario_session",
		TTL:        2 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

// Session is the per-request handle. Mutations mark it dirty; Save persists
// only when something changed.
type Session struct {
	id    string
	data  map[string]interface{}
	opts  Options
	dirty bool
}

type ctxKey struct{}

func storeKey(id string) string { return "bazario:session:" + id }

func freshID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Set stores value under key.
func (s *Session) Set(key string, value interface{}) {
	s.data[key] = value
	s.dirty = true
}

// Get reads a raw value.
func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetString reads a string value.
func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.data[key].(string)
	return v, ok
}

// GetInt reads an int value, accepting the float64 that JSON decoding
// produces.
func (s *Session) GetInt(key string) (int, bool) {
	switch n := s.data[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Delete removes key.
func (s *Session) Delete(key string) {
	delete(s.data, key)
	s.dirty = true
}

// Invalidate empties the session and deletes the Redis copy now instead of
// waiting for the TTL. Used by logout.
func (s *Session) Invalidate() {
	s.data = map[string]interface{}{}
	s.dirty = true
	_ = cache.Del(storeKey(s.id))
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Save writes the session to Redis and refreshes the cookie. A clean session
// is a no-op.
func (s *Session) Save(w http.ResponseWriter) error {
	if !s.dirty {
		return nil
	}

	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := cache.Set(storeKey(s.id), json.RawMessage(raw), s.opts.TTL); err != nil {
		return fmt.Errorf("session: redis save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    s.id,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: s.opts.HTTPOnly,
		Secure:   s.opts.Secure,
		SameSite: s.opts.SameSite,
	})
	s.dirty = false
	return nil
}

// Middleware resolves the cookie to a session (or mints a new one) and puts
// it on the request context.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{opts: opts, data: map[string]interface{}{}}

			if cookie, err := r.Cookie(opts.CookieName); err == nil {
				sess.id = cookie.Value
				if stored := loadData(sess.id); stored != nil {
					sess.data = stored
				}
			} else {
				sess.id = freshID()
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loadData(id string) map[string]interface{} {
	var data map[string]interface{}
	if cache.Get(storeKey(id), &data) {
		return data
	}
	return nil
}

// FromCtx returns the request's session. Outside the middleware it returns a
// throwaway empty session, so callers never nil-check.
func FromCtx(r *http.Request) *Session {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{id: freshID(), data: map[string]interface{}{}, opts: DefaultOptions()}
}
