package controllers

import (
	"net/http"

	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/bind"
	"github.com/adityaraj/bazario/pkg/middleware"
	"github.com/adityaraj/bazario/pkg/response"
	"github.com/adityaraj/bazario/pkg/session"
	"github.com/adityaraj/bazario/pkg/validate"
)

// AuthController handles registration, both login flows, and logout.
type AuthController struct {
	auth   *services.AuthService
	google *services.GoogleService
}

func NewAuthController(auth *services.AuthService, google *services.GoogleService) *AuthController {
	return &AuthController{auth: auth, google: google}
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	user, token, err := c.auth.Register(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	token, err := c.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, map[string]string{"token": token})
}

// GoogleRedirect sends the browser to Google's consent screen with a sealed
// state parameter.
func (c *AuthController) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	if !c.google.Enabled() {
		response.FromError(w, r, apperr.Unavailablef("google sign-in is not configured"))
		return
	}

	url, err := c.google.AuthURL()
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback completes the OAuth flow: code+state in, account+token out.
func (c *AuthController) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !c.google.Enabled() {
		response.FromError(w, r, apperr.Unavailablef("google sign-in is not configured"))
		return
	}

	q := r.URL.Query()
	profile, err := c.google.Exchange(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	user, token, err := c.auth.ExternalCallback(r.Context(), services.GoogleProfile{
		ID:    profile.ID,
		Email: profile.Email,
		Name:  profile.Name,
	})
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Me returns the account behind the presented token.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, user)
}

// Logout revokes the presented token for the rest of its lifetime and
// invalidates the server-side session.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.TokenFromCtx(r); ok {
		_ = middleware.RevokeToken(token, c.auth.TokenTTL())
	}

	if sess := session.FromCtx(r); sess != nil {
		sess.Invalidate()
		_ = sess.Save(w)
	}

	response.Success(w, map[string]string{"message": "logged out"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"nullable"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ChangePassword rotates the caller's own password.
func (c *AuthController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var body changePasswordRequest
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	if err := c.auth.ChangePassword(r.Context(), actor, actor.ID, body.OldPassword, body.NewPassword); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, map[string]string{"message": "password updated"})
}
