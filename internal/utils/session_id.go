package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewSessionID returns 32 bytes of secure random data, hex encoded. The raw
// value only ever lives in the cookie.
func NewSessionID() (string, error) {
	return randomHex(32)
}

// HashSessionID returns the SHA-256 of the raw session id as hex. Storage
// keys are derived from the hash so a leaked store cannot be replayed as
// cookies.
func HashSessionID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
