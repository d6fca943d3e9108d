package server

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// KeyChecker validates the activationKey sent with every sync request. The
// configured key may be stored either in plain text or as a bcrypt hash.
type KeyChecker struct {
	key    []byte
	hashed bool
}

func NewKeyChecker(configured string) *KeyChecker {
	return &KeyChecker{
		key:    []byte(configured),
		hashed: isBcryptHash(configured),
	}
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Valid reports whether presented matches the configured key. An unset key
// accepts nothing.
func (k *KeyChecker) Valid(presented string) bool {
	if len(k.key) == 0 || presented == "" {
		return false
	}
	if k.hashed {
		return bcrypt.CompareHashAndPassword(k.key, []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare(k.key, []byte(presented)) == 1
}
