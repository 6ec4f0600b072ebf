package validate_test

import (
	"testing"

	"github.com/adityaraj/bazario/pkg/validate"
)

type productInput struct {
	Name     string  `json:"name"     validate:"required,min=2,max=50"`
	Price    float64 `json:"price"    validate:"required,gt=0"`
	Category string  `json:"category" validate:"required,in=electronics,apparel,home"`
	Stock    int     `json:"stock"    validate:"gte=0"`
	Website  *string `json:"website"  validate:"nullable,url"`
}

func TestValidInput(t *testing.T) {
	site := "https://example.com"
	errs := validate.Struct(productInput{
		Name:     "Mouse",
		Price:    899,
		Category: "electronics",
		Stock:    0,
		Website:  &site,
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(productInput{})
	for _, field := range []string{"name", "price", "category"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected %s to be required", field)
		}
	}
	if _, ok := errs["stock"]; ok {
		t.Error("gte=0 must allow a zero stock")
	}
}

func TestNullablePointer(t *testing.T) {
	// Nil pointer with nullable: skipped entirely.
	errs := validate.Struct(productInput{Name: "Mouse", Price: 1, Category: "home"})
	if _, ok := errs["website"]; ok {
		t.Errorf("nil nullable pointer must pass, got %v", errs["website"])
	}

	// Set pointer: rules apply to the dereferenced value.
	bad := "not a url"
	errs = validate.Struct(productInput{Name: "Mouse", Price: 1, Category: "home", Website: &bad})
	if _, ok := errs["website"]; !ok {
		t.Error("expected url error for set pointer")
	}
}

func TestInRule(t *testing.T) {
	errs := validate.Struct(productInput{Name: "Mouse", Price: 1, Category: "vehicles"})
	if _, ok := errs["category"]; !ok {
		t.Error("expected in= violation for unknown category")
	}
}

func TestNumericBounds(t *testing.T) {
	type in struct {
		Qty int `json:"qty" validate:"required,between=1,10"`
	}
	if errs := validate.Struct(in{Qty: 5}); validate.HasErrors(errs) {
		t.Errorf("5 is within 1..10: %v", errs)
	}
	if errs := validate.Struct(in{Qty: 11}); !validate.HasErrors(errs) {
		t.Error("11 must violate between=1,10")
	}
}

func TestConfirmed(t *testing.T) {
	type in struct {
		Password             string `json:"password"              validate:"required,min=6,confirmed"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if errs := validate.Struct(in{Password: "secret1", PasswordConfirmation: "secret1"}); validate.HasErrors(errs) {
		t.Errorf("matching confirmation must pass: %v", errs)
	}
	if errs := validate.Struct(in{Password: "secret1", PasswordConfirmation: "other"}); !validate.HasErrors(errs) {
		t.Error("mismatched confirmation must fail")
	}
}
