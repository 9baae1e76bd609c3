package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashRefreshToken derives the value stored in Session.RefreshTokenHash.
// The raw refresh token is never persisted, only its digest.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
