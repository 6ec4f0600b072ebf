package services

import (
	"context"
	"strings"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/pkg/apperr"
)

// ProfileUpdate carries the fields a user may change about themselves.
// Email, role and password are deliberately absent; password changes go
// through AuthService.ChangePassword and role changes are admin-only.
type ProfileUpdate struct {
	Name           *string `json:"name"            validate:"nullable,min=2,max=255"`
	Phone          *string `json:"phone"           validate:"nullable,max=20"`
	Avatar         *string `json:"avatar"          validate:"nullable,url"`
	AddressStreet  *string `json:"address_street"  validate:"nullable,max=255"`
	AddressCity    *string `json:"address_city"    validate:"nullable,max=100"`
	AddressState   *string `json:"address_state"   validate:"nullable,max=100"`
	AddressZip     *string `json:"address_zip"     validate:"nullable,max=20"`
	AddressCountry *string `json:"address_country" validate:"nullable,max=100"`
}

// UserService covers profile reads and updates plus the admin listing.
type UserService struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

// Get returns a user profile. Non-admins may only read their own.
func (s *UserService) Get(ctx context.Context, actor models.User, id uint) (models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return models.User{}, apperr.Authorizationf("not allowed to view this profile")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return models.User{}, apperr.NotFoundf("user %d not found", id)
		}
		return models.User{}, storeErr("users: lookup", err)
	}
	return u, nil
}

// UpdateProfile applies the allow-listed fields. Only set pointers are
// written; everything else on the row is left alone.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.User, id uint, in ProfileUpdate) (models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return models.User{}, apperr.Authorizationf("not allowed to update this profile")
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if notFound(err) {
			return models.User{}, apperr.NotFoundf("user %d not found", id)
		}
		return models.User{}, storeErr("users: lookup", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.User{}, apperr.ValidationFields(map[string]string{"name": "must not be blank"})
		}
		u.Name = name
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
	if in.AddressStreet != nil {
		u.AddressStreet = *in.AddressStreet
	}
	if in.AddressCity != nil {
		u.AddressCity = *in.AddressCity
	}
	if in.AddressState != nil {
		u.AddressState = *in.AddressState
	}
	if in.AddressZip != nil {
		u.AddressZipCode = *in.AddressZip
	}
	if in.AddressCountry != nil {
		u.AddressCountry = *in.AddressCountry
	}

	if err := s.users.Update(ctx, &u); err != nil {
		return models.User{}, storeErr("users: update", err)
	}
	return u, nil
}

// List returns a page of users. Admin only; controllers gate on role but the
// service re-checks so no other caller can slip through.
func (s *UserService) List(ctx context.Context, actor models.User, page, limit int) ([]models.User, repositories.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, repositories.Pagination{}, apperr.Authorizationf("admin access required")
	}
	users, p, err := s.users.All(ctx, page, limit)
	if err != nil {
		return nil, p, storeErr("users: list", err)
	}
	return users, p, nil
}
