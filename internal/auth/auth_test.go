package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewVerifier(hash)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		passphrase string
		want       error
	}{
		{"match", "correct horse", nil},
		{"mismatch", "battery staple", ErrInvalidPassphrase},
		{"empty", "", ErrInvalidPassphrase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Verify(tt.passphrase); !errors.Is(err, tt.want) {
				t.Errorf("Verify(%q) = %v, want %v", tt.passphrase, err, tt.want)
			}
		})
	}
}

func TestUnconfiguredVerifier(t *testing.T) {
	v, err := NewVerifier("")
	if err != nil {
		t.Fatal(err)
	}
	if v.Configured() {
		t.Error("empty hash should not be configured")
	}
	if err := v.Verify("anything"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Verify() = %v, want ErrNotConfigured", err)
	}
}

func TestNewVerifierRejectsGarbage(t *testing.T) {
	if _, err := NewVerifier("not-a-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestHashEmpty(t *testing.T) {
	if _, err := Hash("", bcrypt.MinCost); !errors.Is(err, ErrEmptyPassphrase) {
		t.Errorf("Hash(\"\") = %v, want ErrEmptyPassphrase", err)
	}
}
