// Package password hashes and checks secrets with bcrypt.
//
// Hash is used for account passwords and for one-time reset codes alike.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// saltLen is the length of the "$2a$10$" prefix plus the 22-character encoded
// salt at the start of every bcrypt hash.
const saltLen = 29

// Hash returns the bcrypt hash of secret.
func Hash(secret string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare returns nil when secret matches hash.
func Compare(hash, secret string) error {
	const op = "password.Compare"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Salt extracts the version, cost and salt prefix of a bcrypt hash, the same
// value bcrypt libraries hand out as a "salt". It is empty for malformed input.
func Salt(hash string) string {
	if len(hash) < saltLen || hash[0] != '$' {
		return ""
	}
	return hash[:saltLen]
}
