// Package auth checks the admin passphrase against a bcrypt hash.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrNotConfigured     = errors.New("no passphrase hash configured")
	ErrEmptyPassphrase   = errors.New("passphrase is empty")
)

// Verifier holds the configured hash.
type Verifier struct {
	hash []byte
}

// NewVerifier accepts a bcrypt hash as produced by Hash. An empty hash
// yields a verifier that rejects everything with ErrNotConfigured.
func NewVerifier(hash string) (*Verifier, error) {
	if hash == "" {
		return &Verifier{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("parse passphrase hash: %w", err)
	}
	return &Verifier{hash: []byte(hash)}, nil
}

func (v *Verifier) Configured() bool {
	return len(v.hash) > 0
}

// Verify returns nil when passphrase matches.
func (v *Verifier) Verify(passphrase string) error {
	if !v.Configured() {
		return ErrNotConfigured
	}
	err := bcrypt.CompareHashAndPassword(v.hash, []byte(passphrase))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassphrase
	}
	return err
}

// Hash returns a bcrypt hash of passphrase. cost <= 0 means bcrypt.DefaultCost.
func Hash(passphrase string, cost int) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyPassphrase
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(b), nil
}
