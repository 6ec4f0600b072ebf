package services_test

import (
	"context"
	"testing"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/apperr"
)

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Aditya", "Aditya@Example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token on registration")
	}
	if user.Email != "aditya@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.Role != models.RoleUser {
		t.Errorf("new accounts must start as user, got %q", user.Role)
	}

	// Login with a differently-cased email must still work.
	loginToken, err := svc.Login(ctx, "ADITYA@example.COM", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	id, err := svc.VerifyToken(loginToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != user.ID {
		t.Errorf("token subject = %d, want %d", id, user.ID)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name, userName, email, password string
	}{
		{"missing fields", "", "", ""},
		{"bad email", "A", "not-an-email", "secret123"},
		{"short password", "Aditya", "a@example.com", "12345"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tc.userName, tc.email, tc.password)
			if !apperr.Is(err, apperr.Validation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "First", "dup@example.com", "secret123"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, _, err := svc.Register(ctx, "Second", "DUP@example.com", "secret456")
	if !apperr.Is(err, apperr.Conflict) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}
}

// Failed logins must be indistinguishable whether the account exists, has no
// password, or the password is wrong.
func TestLoginDoesNotLeakAccountExistence(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Known", "known@example.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Provider-only account: empty password hash.
	gid := "google-123"
	providerOnly := models.User{Name: "P", Email: "provider@example.com", GoogleID: &gid, Role: models.RoleUser}
	if err := users.Create(ctx, &providerOnly); err != nil {
		t.Fatalf("create provider account: %v", err)
	}

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "whatever")
	_, errWrongPw := svc.Login(ctx, "known@example.com", "wrong-password")
	_, errProvider := svc.Login(ctx, "provider@example.com", "anything")

	for _, err := range []error{errUnknown, errWrongPw, errProvider} {
		if !apperr.Is(err, apperr.Authentication) {
			t.Fatalf("expected authentication error, got %v", err)
		}
	}

	if apperr.MessageFor(errUnknown) != apperr.MessageFor(errWrongPw) ||
		apperr.MessageFor(errWrongPw) != apperr.MessageFor(errProvider) {
		t.Error("failed logins must share one message regardless of cause")
	}
}

func TestExternalCallbackLinksExistingAccount(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	existing, _, err := svc.Register(ctx, "Existing", "same@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, token, err := svc.ExternalCallback(ctx, services.GoogleProfile{
		ID:    "g-789",
		Email: "Same@Example.com",
		Name:  "Existing",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if user.ID != existing.ID {
		t.Errorf("expected link to account %d, created %d instead", existing.ID, user.ID)
	}

	// The account must now be reachable by Google id, and still only once
	// by email.
	linked, err := users.FindByGoogleID(ctx, "g-789")
	if err != nil {
		t.Fatalf("find by google id: %v", err)
	}
	if linked.ID != existing.ID {
		t.Error("google id linked to the wrong account")
	}

	// Both credentials resolve to one identity.
	if _, err := svc.Login(ctx, "same@example.com", "secret123"); err != nil {
		t.Errorf("password login broken after link: %v", err)
	}
}

// An email match must never capture an account that is already bound to a
// different Google identity.
func TestExternalCallbackRefusesRebinding(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	original, _, err := svc.ExternalCallback(ctx, services.GoogleProfile{
		ID:    "g-original",
		Email: "taken@example.com",
		Name:  "Original",
	})
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}

	_, _, err = svc.ExternalCallback(ctx, services.GoogleProfile{
		ID:    "g-newcomer",
		Email: "Taken@Example.com",
		Name:  "Newcomer",
	})
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// The original linkage must be intact and the newcomer id unlinked.
	linked, err := users.FindByGoogleID(ctx, "g-original")
	if err != nil {
		t.Fatalf("find by google id: %v", err)
	}
	if linked.ID != original.ID {
		t.Error("original linkage lost")
	}
	if _, err := users.FindByGoogleID(ctx, "g-newcomer"); err == nil {
		t.Error("newcomer google id must not be linked to anything")
	}
}

func TestExternalCallbackCreatesProviderOnlyAccount(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	user, _, err := svc.ExternalCallback(ctx, services.GoogleProfile{
		ID:    "g-new",
		Email: "fresh@example.com",
		Name:  "Fresh",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if user.HasPassword() {
		t.Error("provider-created accounts must have no password hash")
	}

	// The password path must fail closed for this account.
	if _, err := svc.Login(ctx, "fresh@example.com", ""); !apperr.Is(err, apperr.Validation) {
		t.Errorf("empty password must be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, "fresh@example.com", "guess"); !apperr.Is(err, apperr.Authentication) {
		t.Errorf("expected authentication failure, got %v", err)
	}

	// A second callback for the same Google id reuses the account.
	again, _, err := svc.ExternalCallback(ctx, services.GoogleProfile{
		ID: "g-new", Email: "fresh@example.com", Name: "Fresh",
	})
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}
	if again.ID != user.ID {
		t.Error("repeat callback created a duplicate account")
	}
}

func TestExternalCallbackIncompleteProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.ExternalCallback(ctx, services.GoogleProfile{ID: "", Email: "x@example.com"})
	if !apperr.Is(err, apperr.Authentication) {
		t.Errorf("expected authentication error for missing id, got %v", err)
	}
	_, _, err = svc.ExternalCallback(ctx, services.GoogleProfile{ID: "g-1", Email: ""})
	if !apperr.Is(err, apperr.Authentication) {
		t.Errorf("expected authentication error for missing email, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newAuthService(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.VerifyToken(token); !apperr.Is(err, apperr.Authentication) {
			t.Errorf("token %q: expected authentication error, got %v", token, err)
		}
	}
}

// A demoted admin must lose access on the next request, not at token expiry.
func TestRequireRoleReadsCurrentRole(t *testing.T) {
	svc, users, db := newAuthService(t)
	ctx := context.Background()

	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.RequireRole(ctx, admin.ID, models.RoleAdmin); err != nil {
		t.Fatalf("admin check failed: %v", err)
	}

	admin.Role = models.RoleUser
	if err := users.Update(ctx, &admin); err != nil {
		t.Fatalf("demote: %v", err)
	}

	if _, err := svc.RequireRole(ctx, admin.ID, models.RoleAdmin); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("expected authorization failure after demotion, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Rotator", "rotate@example.com", "oldpass1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Wrong current password is rejected.
	if err := svc.ChangePassword(ctx, user, user.ID, "wrong", "newpass1"); !apperr.Is(err, apperr.Authentication) {
		t.Errorf("expected authentication error, got %v", err)
	}

	if err := svc.ChangePassword(ctx, user, user.ID, "oldpass1", "newpass1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Login(ctx, "rotate@example.com", "oldpass1"); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := svc.Login(ctx, "rotate@example.com", "newpass1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// Another non-admin cannot rotate someone else's password.
	other := models.User{Model: user.Model, Role: models.RoleUser}
	other.ID = user.ID + 100
	if err := svc.ChangePassword(ctx, other, user.ID, "", "hacked99"); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("expected authorization error, got %v", err)
	}
}
