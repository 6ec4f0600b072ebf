package services_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/apperr"
)

func newUserService(t *testing.T) (*services.UserService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return services.NewUserService(repositories.NewUserRepository(db)), db
}

func strPtr(s string) *string { return &s }

func TestUpdateProfilePatchesOnlySetFields(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()
	u := seedUser(t, db, "me@example.com", models.RoleUser)

	updated, err := svc.UpdateProfile(ctx, u, u.ID, services.ProfileUpdate{
		Phone:       strPtr("+91 98765 43210"),
		AddressCity: strPtr("Pune"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "+91 98765 43210" || updated.AddressCity != "Pune" {
		t.Errorf("set fields not applied: %+v", updated)
	}
	// Unset pointers must leave existing values alone.
	if updated.Name != u.Name || updated.Email != u.Email {
		t.Errorf("unset fields changed: name=%q email=%q", updated.Name, updated.Email)
	}
}

// A name pointer that trims to nothing is rejected field-by-field, and the
// stored row keeps its old name.
func TestUpdateProfileBlankName(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()
	u := seedUser(t, db, "me@example.com", models.RoleUser)

	_, err := svc.UpdateProfile(ctx, u, u.ID, services.ProfileUpdate{Name: strPtr("   ")})
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fields := apperr.FieldsFor(err); fields["name"] == "" {
		t.Errorf("expected a field message for name, got %v", fields)
	}

	var fresh models.User
	db.First(&fresh, u.ID)
	if fresh.Name != u.Name {
		t.Errorf("name changed despite rejection: %q", fresh.Name)
	}
}

func TestProfileAccessControl(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@example.com", models.RoleUser)
	stranger := seedUser(t, db, "stranger@example.com", models.RoleUser)
	admin := seedUser(t, db, "admin@example.com", models.RoleAdmin)

	if _, err := svc.Get(ctx, stranger, owner.ID); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("stranger read: expected authorization error, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, stranger, owner.ID, services.ProfileUpdate{Phone: strPtr("1")}); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("stranger write: expected authorization error, got %v", err)
	}
	if _, err := svc.Get(ctx, admin, owner.ID); err != nil {
		t.Errorf("admin read: %v", err)
	}
	if _, _, err := svc.List(ctx, owner, 1, 10); !apperr.Is(err, apperr.Authorization) {
		t.Errorf("non-admin list: expected authorization error, got %v", err)
	}
}
