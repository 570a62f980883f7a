// Package access gates transfer retrieval behind an optional password.
package access

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// hashCost keeps offline brute force expensive while staying fast enough
// for interactive uploads.
const hashCost = 10

var (
	// ErrPasswordRequired means the transfer has a password and the caller
	// supplied none. It is an expected outcome, not a failure: the caller
	// should re-prompt instead of repeating the whole lookup.
	ErrPasswordRequired = errors.New("password required")

	// ErrIncorrectPassword means the supplied password did not match the
	// stored hash.
	ErrIncorrectPassword = errors.New("incorrect password")
)

// HashPassword derives a one-way salted hash for storage on the transfer.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Check verifies a supplied password against a transfer's stored hash.
// A nil or empty hash grants access unconditionally. Otherwise an absent
// password yields ErrPasswordRequired and a mismatch ErrIncorrectPassword.
func Check(hash *string, password string) error {
	if hash == nil || *hash == "" {
		return nil
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}
