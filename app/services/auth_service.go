package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/auth"
	"github.com/adityaraj/bazario/pkg/event"
	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/metrics"
	"gorm.io/gorm"
)

// invalidCredentials is the one message every failed login gets. Unknown
// email, provider-only account, and wrong password are indistinguishable,
// so the endpoint cannot be used to enumerate accounts.
const invalidCredentials = "invalid credentials"

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// GoogleProfile is the provider profile handed to ExternalCallback.
type GoogleProfile struct {
	ID    string
	Email string
	Name  string
}

// AuthService establishes identities and mints bearer tokens.
type AuthService struct {
	users      *repositories.UserRepository
	issuer     *auth.Issuer
	bcryptCost int
}

func NewAuthService(users *repositories.UserRepository, issuer *auth.Issuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, issuer: issuer, bcryptCost: bcryptCost}
}

// Register creates a password-based account and returns it with a fresh
// token. The password is hashed here, before the record exists — there is
// no save hook doing it behind the scenes.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (models.User, string, error) {
	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)

	switch {
	case name == "" || email == "" || password == "":
		return models.User{}, "", apperr.Validationf("name, email and password are required")
	case !emailRE.MatchString(email):
		return models.User{}, "", apperr.Validationf("email address is not valid")
	case len(password) < 6:
		return models.User{}, "", apperr.Validationf("password must be at least 6 characters")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, "", apperr.Conflictf("an account with that email already exists")
	} else if !notFound(err) {
		return models.User{}, "", storeErr("auth: lookup email", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return models.User{}, "", apperr.Wrap(apperr.Internal, "auth: hash password", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		// Lost a race against a concurrent registration for the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, "", apperr.Conflictf("an account with that email already exists")
		}
		return models.User{}, "", storeErr("auth: create user", err)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return models.User{}, "", apperr.Wrap(apperr.Internal, "auth: issue token", err)
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", user.ID)
	metrics.RegistrationsTotal.Inc()
	event.Fire(event.UserRegistered, user)

	return user, token, nil
}

// Login verifies a password credential and returns a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperr.Validationf("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if notFound(err) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return "", apperr.Authenticationf(invalidCredentials)
		}
		return "", storeErr("auth: lookup email", err)
	}

	// CheckPassword fails closed for provider-only accounts (empty hash).
	if !auth.CheckPassword(user.PasswordHash, password) {
		logger.WithCtx(ctx).Warn("login rejected", "user_id", user.ID)
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return "", apperr.Authenticationf(invalidCredentials)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "auth: issue token", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return token, nil
}

// ExternalCallback resolves a verified Google profile to an account and
// mints a token. Resolution order:
//
//  1. an account already linked to this Google id,
//  2. an unlinked account with the same email — the Google id is linked to
//     it (account merge; see DESIGN.md for the open security question). An
//     account already linked to a different Google id is rejected with a
//     conflict instead of being rebound,
//  3. a brand-new account with no password hash, so the password login
//     path can never be used against it.
func (s *AuthService) ExternalCallback(ctx context.Context, profile GoogleProfile) (models.User, string, error) {
	if profile.ID == "" || profile.Email == "" {
		return models.User{}, "", apperr.Authenticationf("identity provider returned an incomplete profile")
	}
	email := models.NormalizeEmail(profile.Email)

	user, err := s.users.FindByGoogleID(ctx, profile.ID)
	switch {
	case err == nil:
		// already linked

	case notFound(err):
		user, err = s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			// Existing account with the same email: link, don't duplicate.
			// An account already bound to a different Google identity is
			// never silently rebound — that would let a fresh Google
			// account capture it.
			if user.GoogleID != nil && *user.GoogleID != profile.ID {
				logger.WithCtx(ctx).Warn("google link refused", "user_id", user.ID)
				return models.User{}, "", apperr.Conflictf("this email is already linked to a different google account")
			}
			user.GoogleID = &profile.ID
			if err := s.users.Update(ctx, &user); err != nil {
				return models.User{}, "", storeErr("auth: link google id", err)
			}
			logger.WithCtx(ctx).Info("google identity linked", "user_id", user.ID)

		case notFound(err):
			user = models.User{
				Name:     strings.TrimSpace(profile.Name),
				Email:    email,
				GoogleID: &profile.ID,
				Role:     models.RoleUser,
			}
			if user.Name == "" {
				user.Name = email
			}
			if err := s.users.Create(ctx, &user); err != nil {
				return models.User{}, "", storeErr("auth: create provider user", err)
			}
			logger.WithCtx(ctx).Info("user registered via google", "user_id", user.ID)
			metrics.RegistrationsTotal.Inc()
			event.Fire(event.UserRegistered, user)

		default:
			return models.User{}, "", storeErr("auth: lookup email", err)
		}

	default:
		return models.User{}, "", storeErr("auth: lookup google id", err)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return models.User{}, "", apperr.Wrap(apperr.Internal, "auth: issue token", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, token, nil
}

// TokenTTL is the configured bearer token lifetime. Revocations use it as
// an upper bound on how long a denylist entry must live.
func (s *AuthService) TokenTTL() time.Duration { return s.issuer.TTL() }

// VerifyToken validates a bearer token and returns the subject user id.
// Pure verification — no store access, no side effects.
func (s *AuthService) VerifyToken(token string) (uint, error) {
	id, err := s.issuer.Verify(token)
	if err != nil {
		return 0, apperr.Authenticationf("invalid or expired token")
	}
	return id, nil
}

// RequireRole re-reads the user's current role from the store. Tokens carry
// no role claim, so a demoted admin loses privileges the moment the row
// changes, not when the token expires.
func (s *AuthService) RequireRole(ctx context.Context, userID uint, role string) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if notFound(err) {
			return models.User{}, apperr.Authenticationf("account no longer exists")
		}
		return models.User{}, storeErr("auth: lookup user", err)
	}
	if user.Role != role {
		return models.User{}, apperr.Authorizationf("requires %s role", role)
	}
	return user, nil
}

// CurrentUser loads the account behind a verified subject id.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if notFound(err) {
			return models.User{}, apperr.Authenticationf("account no longer exists")
		}
		return models.User{}, storeErr("auth: lookup user", err)
	}
	return user, nil
}

// ChangePassword sets a new password for target. The owner must present
// their current password; an admin may override without it. This is the
// only path that writes PasswordHash — profile updates cannot touch it.
func (s *AuthService) ChangePassword(ctx context.Context, actor models.User, targetID uint, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return apperr.Validationf("password must be at least 6 characters")
	}

	if actor.ID != targetID && !actor.IsAdmin() {
		return apperr.Authorizationf("cannot change another user's password")
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if notFound(err) {
			return apperr.NotFoundf("user %d not found", targetID)
		}
		return storeErr("auth: lookup user", err)
	}

	if actor.ID == targetID {
		if !auth.CheckPassword(target.PasswordHash, oldPassword) {
			return apperr.Authenticationf(invalidCredentials)
		}
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "auth: hash password", err)
	}

	target.PasswordHash = hash
	if err := s.users.Update(ctx, &target); err != nil {
		return storeErr("auth: update password", err)
	}

	logger.WithCtx(ctx).Info("password changed", "user_id", target.ID, "by", actor.ID)
	return nil
}
