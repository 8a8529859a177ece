package fakeapi

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Passwords are pre-hashed with sha256: bcrypt input is limited to 72 bytes
func hashPassword(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	// Tests don't need production cost
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.MinCost)
	return string(hash), err
}

func comparePassword(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}
