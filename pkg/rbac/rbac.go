// Package rbac provides role-based access control middleware.
//
// Role membership is checked against the user store on every request rather
// than trusted from the token, so a demoted admin loses access as soon as
// the row changes.
package rbac

import (
	"context"
	"net/http"

	"github.com/adityaraj/bazario/pkg/middleware"
	"github.com/adityaraj/bazario/pkg/response"
)

// RoleChecker verifies that the user currently holds role.
// AuthService.RequireRole satisfies this via a small adapter closure.
type RoleChecker func(ctx context.Context, userID uint, role string) error

// HasRole returns middleware that allows access only when check passes for
// the authenticated user. Requires middleware.Auth to have already run.
func HasRole(check RoleChecker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := middleware.UserIDFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if err := check(r.Context(), userID, role); err != nil {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guest returns middleware that blocks authenticated users (useful for
// login/register endpoints).
func Guest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserIDFromCtx(r); ok {
			response.Error(w, http.StatusConflict, "Already authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
