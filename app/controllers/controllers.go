// Package controllers translates HTTP requests into service calls and
// service results into JSON responses. No business rules live here.
package controllers

import (
	"net/http"
	"strconv"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/middleware"
	"github.com/adityaraj/bazario/pkg/router"
)

// paramUint reads a numeric URL parameter like {id}.
func paramUint(r *http.Request, key string) (uint, error) {
	raw := router.Param(r, key)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, apperr.Validationf("%s must be a positive integer", key)
	}
	return uint(n), nil
}

// pageParams reads ?page and ?limit with sane defaults.
func pageParams(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}

// currentUser loads the account behind the verified bearer token on r.
func currentUser(r *http.Request, auth *services.AuthService) (models.User, error) {
	userID, ok := middleware.UserIDFromCtx(r)
	if !ok {
		return models.User{}, apperr.Authenticationf("authentication required")
	}
	return auth.CurrentUser(r.Context(), userID)
}
