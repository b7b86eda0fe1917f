package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ErrWeakPassword rejects passwords outside the accepted length range.
var ErrWeakPassword = errors.New("password does not meet requirements")

// ValidatePassword checks length limits. bcrypt ignores input past 72 bytes.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, MinPasswordLength)
	case len(password) > 72:
		return fmt.Errorf("%w: at most 72 bytes allowed", ErrWeakPassword)
	}
	return nil
}

// HashPassword hashes a password. Costs outside bcrypt's range use the
// library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
