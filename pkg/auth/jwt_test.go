package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/adityaraj/bazario/pkg/auth"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)

	token, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != 42 {
		t.Errorf("subject = %d, want 42", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := auth.NewIssuer("secret-a", time.Hour).Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := auth.NewIssuer("secret-b", time.Hour).Verify(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := auth.NewIssuer("secret", time.Hour).WithClock(func() time.Time { return past })

	token, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := auth.NewIssuer("secret", time.Hour).Verify(token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)

	token, err := issuer.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	forged := parts[0] + "." + "eyJzdWIiOiI5OTkifQ" + "." + parts[2]

	if _, err := issuer.Verify(forged); err == nil {
		t.Error("tampered payload must not verify")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("secret123", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("password stored in the clear")
	}

	if !auth.CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if auth.CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
	// Empty hash (provider-only accounts) must fail closed.
	if auth.CheckPassword("", "") {
		t.Error("empty hash must never match")
	}
}
