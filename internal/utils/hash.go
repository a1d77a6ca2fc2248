package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no user matched, so lookups and
// password checks cost the same either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("registry-timing-equalizer"), bcrypt.DefaultCost)

// HashPassword returns a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a stored hash with a plaintext candidate.
// bcrypt hashes are verified by bcrypt; anything else is treated as a legacy
// hex SHA-256 digest imported from the previous system. Legacy checks still
// pay for one bcrypt comparison so every outcome takes bcrypt time.
func CheckPassword(hashedPassword, password string) bool {
	if !IsLegacyHash(hashedPassword) {
		return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
	}

	BurnPasswordCheck(password)
	stored, err := hex.DecodeString(strings.ToLower(hashedPassword))
	if err != nil || len(stored) != sha256.Size {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(stored, sum[:]) == 1
}

// IsLegacyHash reports whether hashedPassword predates bcrypt.
func IsLegacyHash(hashedPassword string) bool {
	return !strings.HasPrefix(hashedPassword, "$2")
}

// BurnPasswordCheck performs a throwaway bcrypt comparison.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// LegacyPasswordHash returns the hex SHA-256 digest format used by imported accounts.
func LegacyPasswordHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
