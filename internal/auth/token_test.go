package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMintAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	id := uuid.New()

	token, err := svc.Mint(id, RoleAdmin, "Ada")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != id {
		t.Errorf("user id = %s, want %s", claims.UserID, id)
	}
	if claims.Role != string(RoleAdmin) {
		t.Errorf("role = %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.Name != "Ada" {
		t.Errorf("name = %q, want Ada", claims.Name)
	}
	if claims.Issuer != "taskflow" {
		t.Errorf("issuer = %q, want taskflow", claims.Issuer)
	}
	if claims.Subject != id.String() {
		t.Errorf("subject = %q, want %s", claims.Subject, id)
	}
}

func TestVerifyExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.Mint(uuid.New(), RoleUser, "x")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).Mint(uuid.New(), RoleUser, "x")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := NewTokenService("secret-b", time.Hour).Verify(token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestVerifyGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	for _, bad := range []string{"", "not.a.jwt", strings.Repeat("a", 64)} {
		if _, err := svc.Verify(bad); err == nil {
			t.Errorf("expected error for token %q", bad)
		}
	}
}

func TestVerifyUnknownRole(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Mint(uuid.New(), Role("superuser"), "Mallory")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("Verify accepted a token with an unknown role")
	}
}
