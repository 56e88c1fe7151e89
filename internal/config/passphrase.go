package config

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CheckPassphrase reports whether given unlocks the kitchen. The stored
// value may be a bcrypt hash or plain text.
func (c Config) CheckPassphrase(given string) bool {
	return MatchPassphrase(c.KitchenPassphrase, given)
}

// MatchPassphrase compares given against stored.
func MatchPassphrase(stored, given string) bool {
	if stored == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// HashPassphrase returns a bcrypt hash suitable for kitchen.passphrase.
func HashPassphrase(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("passphrase is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
