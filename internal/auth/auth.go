// Package auth holds the shared-secret authenticator used by the arena. Every
// participant logs in with their own name and the one event password.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"routing-arena/internal/domain"
)

// SharedSecret accepts any non-empty identity presenting the event password.
// Only the bcrypt hash is kept in memory.
type SharedSecret struct {
	hash []byte
}

// NewSharedSecret hashes password for later comparison.
func NewSharedSecret(password string) (*SharedSecret, error) {
	if password == "" {
		return nil, errors.New("shared secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash shared secret: %w", err)
	}
	return &SharedSecret{hash: hash}, nil
}

// NewSharedSecretFromHash uses a precomputed bcrypt hash.
func NewSharedSecretFromHash(hash string) (*SharedSecret, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}
	return &SharedSecret{hash: []byte(hash)}, nil
}

// Authenticate returns the trimmed identity when secret matches.
func (s *SharedSecret) Authenticate(identity, secret string) (string, error) {
	name := strings.TrimSpace(identity)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", domain.ErrAuthFailed)
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(secret)); err != nil {
		return "", domain.ErrAuthFailed
	}
	return name, nil
}
