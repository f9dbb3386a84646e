package utils

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}

// ValidatePassword checks length only; bcrypt ignores bytes past 72.
func ValidatePassword(s string) error {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return NewValidationError("password", "must be at least %d characters", MinPasswordLength)
	}
	if len(s) > 72 {
		return NewValidationError("password", "must be at most 72 bytes")
	}
	return nil
}
