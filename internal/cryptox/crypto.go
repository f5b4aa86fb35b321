// Package cryptox wraps password hashing for stored credentials.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor for new password hashes.
const HashCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of password.
func HashPassword(password []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(password, HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A malformed hash is
// treated as a mismatch.
func CheckPassword(hash string, password []byte) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	return err == nil
}

// dummyHash is compared against when the user does not exist, so unknown
// usernames cost the same as wrong passwords.
var dummyHash = mustHash("refinery-timing-equaliser")

// BurnCompare spends one bcrypt comparison and always reports false.
func BurnCompare(password []byte) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash, password)
	return false
}

func mustHash(s string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(s), HashCost)
	if err != nil {
		panic(errors.Join(errors.New("cryptox: init dummy hash"), err))
	}
	return h
}
