// Package auth provides bearer-token issuing/verification and password
// hashing for Bazario.
//
// The Issuer holds the signing secret and token lifetime; it is built once
// at boot from config and passed into the services that need it. Business
// code never reaches into config for the secret itself.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is the single failure Verify exposes. Signature problems,
// malformed payloads, and expiry all collapse into it so callers outside the
// trust boundary cannot distinguish which check failed.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the typed JWT payload. It carries only the subject user id —
// roles are re-fetched from the user store on every privileged check, so a
// stale token can never grant a privilege the account has since lost.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer creates and verifies signed, time-bounded bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer with the given HS256 secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the issuer's clock. Test hook.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue creates a signed token for the given user id.
func (i *Issuer) Issue(userID uint) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token string, returning the subject user id.
// Any structural, signature, or expiry failure yields ErrInvalidToken.
func (i *Issuer) Verify(t string) (uint, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// HashPassword returns a bcrypt hash of the plain-text password.
// cost <= 0 uses the library default.
func HashPassword(plain string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
// An empty hash (provider-only account) always fails closed.
func CheckPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
