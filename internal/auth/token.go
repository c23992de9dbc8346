package auth

import (
	"crypto/rand"
	"encoding/hex"
)

const sessionTokenBytes = 32

// GenerateSessionToken returns a random hex encoded session token.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
