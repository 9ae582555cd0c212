package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// refreshBytes is the entropy of a refresh value: 48 bytes -> 96 hex chars.
const refreshBytes = 48

// NewRefreshValue returns a cryptographically random opaque refresh token.
func NewRefreshValue() (string, error) {
	buf := make([]byte, refreshBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashRefresh returns the SHA‑256 hex digest stored in place of the raw
// value, so a leaked table cannot be replayed.
func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
