package token

import (
	"crypto/sha256"
	"encoding/base64"
)

// Digest returns the SHA-256 of raw, base64url encoded without padding.
// Tokens are stored and looked up by digest only.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
