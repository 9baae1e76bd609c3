// Package auth implements session issuance and verification (4.H):
// registration, login, bearer/refresh tokens, and refresh-token family
// revocation on replay.
package auth

import "time"

// User is the Hub's identity record.
type User struct {
	UserID       string
	Email        string
	PasswordHash string
	DisplayName  string
	Unlimited    bool
	CreatedAt    time.Time
}

// Session backs one outstanding refresh token. Refresh rotates: each
// call produces a new Session row in the same Family and revokes the
// prior one; replay of a revoked token revokes the whole family.
type Session struct {
	SessionID         string
	UserID            string
	Family            string
	RefreshTokenHash  string
	DeviceFingerprint string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	Revoked           bool
}

// TokenPair is what Register/Login/Refresh hand back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Claims are the bearer token's JWT claims (spec §4.H: sub, exp, iat, aud, type).
type Claims struct {
	Subject   string
	Audience  string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessTokenTTL is the bearer token lifetime; spec §4.H caps it at 1h.
const AccessTokenTTL = 15 * time.Minute

// RefreshTokenTTL bounds how long an unused refresh token remains valid.
const RefreshTokenTTL = 30 * 24 * time.Hour
