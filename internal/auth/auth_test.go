package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"routing-arena/internal/domain"
)

func TestSharedSecret(t *testing.T) {
	a, err := NewSharedSecret("AbakusErEnKalkulator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, err := a.Authenticate("  alice ", "AbakusErEnKalkulator")
	if err != nil || name != "alice" {
		t.Fatalf("expected alice, got %q, %v", name, err)
	}
	if _, err := a.Authenticate("alice", "wrong"); !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if _, err := a.Authenticate("   ", "AbakusErEnKalkulator"); !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed for blank name, got %v", err)
	}
}

func TestSharedSecretFromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := NewSharedSecretFromHash(string(hash))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Authenticate("bob", "pw"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if _, err := NewSharedSecretFromHash("plain"); err == nil {
		t.Fatalf("expected error for non-bcrypt hash")
	}
	if _, err := NewSharedSecret(""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
