package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
)

// hubClaims is the on-wire JWT claim set: {sub, exp, iat, aud, type}.
type hubClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HMAC-SHA256 bearer/refresh tokens.
type TokenIssuer struct {
	secret   []byte
	audience string
}

// NewTokenIssuer builds a TokenIssuer. secret must be non-empty; callers
// are expected to fail startup in production when it is not configured.
func NewTokenIssuer(secret, audience string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), audience: audience}
}

func (t *TokenIssuer) sign(userID, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := &hubClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueAccessToken signs a short-lived bearer token.
func (t *TokenIssuer) IssueAccessToken(userID string) (string, time.Time, error) {
	return t.sign(userID, tokenTypeAccess, AccessTokenTTL)
}

// IssueRefreshToken signs a long-lived refresh token. Its hash, not the
// token itself, is what gets persisted in the Session row.
func (t *TokenIssuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	return t.sign(userID, tokenTypeRefresh, RefreshTokenTTL)
}

// Verify parses and validates a token, requiring it match wantType
// ("access" or "refresh").
func (t *TokenIssuer) Verify(tokenString, wantType string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &hubClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, huberrors.New(huberrors.KindUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*hubClaims)
	if !ok {
		return Claims{}, huberrors.New(huberrors.KindUnauthorized, "invalid token claims")
	}
	if claims.TokenType != wantType {
		return Claims{}, huberrors.New(huberrors.KindUnauthorized, "wrong token type")
	}
	if t.audience != "" && !containsAudience(claims.Audience, t.audience) {
		return Claims{}, huberrors.New(huberrors.KindUnauthorized, "invalid audience")
	}

	out := Claims{
		Subject:   claims.Subject,
		TokenType: claims.TokenType,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if len(claims.Audience) > 0 {
		out.Audience = claims.Audience[0]
	}
	return out, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
