package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/adityaraj/bazario/pkg/apperr"
)

func TestKindClassification(t *testing.T) {
	cases := []struct {
		err  error
		kind apperr.Kind
	}{
		{apperr.Validationf("bad input"), apperr.Validation},
		{apperr.Authenticationf("who are you"), apperr.Authentication},
		{apperr.Authorizationf("not yours"), apperr.Authorization},
		{apperr.Conflictf("raced"), apperr.Conflict},
		{apperr.NotFoundf("gone"), apperr.NotFound},
		{apperr.Unavailablef("later"), apperr.Unavailable},
		{errors.New("plain"), apperr.Internal},
		{nil, apperr.Internal},
	}
	for _, tc := range cases {
		if got := apperr.KindOf(tc.err); got != tc.kind {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.kind)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := apperr.Wrap(apperr.Internal, "orders: create", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost")
	}
	if !apperr.Is(err, apperr.Internal) {
		t.Error("kind lost through wrap")
	}

	// Wrapping again through fmt must keep the kind visible.
	outer := fmt.Errorf("request failed: %w", err)
	if !apperr.Is(outer, apperr.Internal) {
		t.Error("kind lost through fmt.Errorf wrap")
	}
}

func TestMessageFor(t *testing.T) {
	if msg := apperr.MessageFor(apperr.NotFoundf("order 7 not found")); msg != "order 7 not found" {
		t.Errorf("message = %q", msg)
	}
	// Plain errors expose no detail to clients.
	if msg := apperr.MessageFor(errors.New("pq: connection refused")); msg == "pq: connection refused" {
		t.Error("internal error text leaked")
	}
}

func TestValidationFields(t *testing.T) {
	err := apperr.ValidationFields(map[string]string{"email": "The email field is required."})

	if !apperr.Is(err, apperr.Validation) {
		t.Fatal("expected validation kind")
	}
	fields := apperr.FieldsFor(err)
	if fields["email"] == "" {
		t.Error("field detail lost")
	}
	if apperr.FieldsFor(errors.New("plain")) != nil {
		t.Error("plain errors have no fields")
	}
}
