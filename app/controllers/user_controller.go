package controllers

import (
	"net/http"

	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/bind"
	"github.com/adityaraj/bazario/pkg/resource"
	"github.com/adityaraj/bazario/pkg/response"
	"github.com/adityaraj/bazario/pkg/validate"
)

// adminUserResource shapes the admin account listing: identity and role only,
// the address block stays off the wire. Collection items arrive as decoded
// JSON maps keyed by the model's json tags.
type adminUserResource struct{ resource.Base }

func (adminUserResource) ToArray(v interface{}) resource.Map {
	m, _ := v.(map[string]interface{})
	return resource.Map{
		"id":         m["ID"],
		"name":       m["name"],
		"email":      m["email"],
		"role":       m["role"],
		"created_at": m["CreatedAt"],
	}
}

// UserController covers profile reads and updates plus the admin listing.
type UserController struct {
	users *services.UserService
	auth  *services.AuthService
}

func NewUserController(users *services.UserService, auth *services.AuthService) *UserController {
	return &UserController{users: users, auth: auth}
}

func (c *UserController) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	user, err := c.users.Get(r.Context(), actor, id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, user)
}

func (c *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	id, err := paramUint(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var body services.ProfileUpdate
	if errs, err := bind.JSON(r, &body); err != nil {
		response.FromError(w, r, err)
		return
	} else if validate.HasErrors(errs) {
		response.ValidationError(w, errs)
		return
	}

	user, err := c.users.UpdateProfile(r.Context(), actor, id, body)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, user)
}

// List returns a page of all accounts. Mounted behind the admin guard.
func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r, c.auth)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	page, limit := pageParams(r)
	users, p, err := c.users.List(r.Context(), actor, page, limit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	resource.CollectionOf(adminUserResource{}, users).WithPagination(p).Respond(w)
}
