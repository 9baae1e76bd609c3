package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/ledger"
)

const loginScope = "auth.login"

// Ledger is the narrow slice of internal/ledger.Ledger auth needs to open
// a new user's Energy row during registration.
type Ledger interface {
	Register(ctx context.Context, userID string, unlimited bool) (ledger.EnergyRow, error)
}

// Service implements registration, login, and refresh rotation (4.H).
type Service struct {
	store  Store
	tokens *TokenIssuer
	ledger Ledger
	events events.Sink
	guard  LoginGuard
	logger *logging.Logger
}

// New constructs a Service. guard may be nil (no login-failure throttling).
func New(store Store, tokens *TokenIssuer, ledger Ledger, sink events.Sink, guard LoginGuard, logger *logging.Logger) *Service {
	return &Service{store: store, tokens: tokens, ledger: ledger, events: sink, guard: guard, logger: logger}
}

// Register creates the User and Energy rows, emits UserRegistered, and
// returns a fresh token pair.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (User, TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, TokenPair{}, huberrors.New(huberrors.KindValidation, "email and password are required")
	}

	if _, found, err := s.store.GetUserByEmail(ctx, email); err != nil {
		return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "check existing user", err)
	} else if found {
		return User{}, TokenPair{}, huberrors.New(huberrors.KindConflict, "email already registered")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindInternalUnavailable, "hash password", err)
	}

	user := User{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	user, err = s.store.CreateUser(ctx, user)
	if err != nil {
		return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "create user", err)
	}

	if s.ledger != nil {
		if _, err := s.ledger.Register(ctx, user.UserID, false); err != nil {
			return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "open energy row", err)
		}
	}

	pair, err := s.issueTokenPair(ctx, user.UserID, "")
	if err != nil {
		return User{}, TokenPair{}, err
	}

	if s.logger != nil {
		s.logger.Info(ctx, "user registered", map[string]interface{}{"user_id": user.UserID})
	}
	if s.events != nil {
		_, _ = s.events.Record(ctx, events.TypeUserRegistered, user.UserID, map[string]interface{}{
			"email": user.Email,
		}, nil)
	}

	return user, pair, nil
}

// Login verifies credentials and, on success, issues a token pair. Failed
// attempts are throttled per-identity and per-IP via LoginGuard and
// always emit LoginFailed regardless of the reason (unknown email vs.
// wrong password look identical to the caller).
func (s *Service) Login(ctx context.Context, email, password, clientIP string) (User, TokenPair, error) {
	email = normalizeEmail(email)

	if s.guard != nil {
		identOK, err := s.guard.Allow(ctx, loginScope, email)
		if err != nil {
			return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindRateLimited, "rate limiter unavailable", err)
		}
		if !identOK {
			return User{}, TokenPair{}, huberrors.New(huberrors.KindRateLimited, "too many login attempts")
		}
		if clientIP != "" {
			ipOK, err := s.guard.Allow(ctx, loginScope, clientIP)
			if err != nil {
				return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindRateLimited, "rate limiter unavailable", err)
			}
			if !ipOK {
				return User{}, TokenPair{}, huberrors.New(huberrors.KindRateLimited, "too many login attempts")
			}
		}
	}

	user, found, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return User{}, TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load user", err)
	}
	if !found || !verifyPassword(user.PasswordHash, password) {
		s.recordLoginFailure(ctx, email, clientIP, user.UserID)
		return User{}, TokenPair{}, huberrors.New(huberrors.KindUnauthorized, "invalid credentials")
	}

	pair, err := s.issueTokenPair(ctx, user.UserID, "")
	if err != nil {
		return User{}, TokenPair{}, err
	}

	if s.events != nil {
		_, _ = s.events.Record(ctx, events.TypeLoginSucceeded, user.UserID, map[string]interface{}{
			"email": email,
		}, nil)
	}
	return user, pair, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, email, clientIP, actorUserID string) {
	if s.guard != nil {
		_ = s.guard.RecordFailure(ctx, loginScope, email)
		if clientIP != "" {
			_ = s.guard.RecordFailure(ctx, loginScope, clientIP)
		}
	}
	if s.logger != nil {
		s.logger.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{"email": email, "ip": clientIP})
	}
	if s.events != nil {
		_, _ = s.events.Record(ctx, events.TypeLoginFailed, actorUserID, map[string]interface{}{
			"email": email,
		}, nil)
	}
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new Session + token pair is issued in its place. Presenting an
// already-revoked token is treated as a breach signal and revokes the
// entire token family, forcing re-login everywhere.
func (s *Service) Refresh(ctx context.Context, refreshToken, deviceFingerprint string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	hash := hashRefreshToken(refreshToken)
	session, found, err := s.store.GetSessionByRefreshHash(ctx, hash)
	if err != nil {
		return TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load session", err)
	}
	if !found {
		return TokenPair{}, huberrors.New(huberrors.KindUnauthorized, "unknown refresh token")
	}
	if session.Revoked {
		_ = s.store.RevokeFamily(ctx, session.Family)
		return TokenPair{}, huberrors.New(huberrors.KindUnauthorized, "refresh token reuse detected, family revoked")
	}

	if err := s.store.RevokeSession(ctx, session.SessionID); err != nil {
		return TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "revoke session", err)
	}

	pair, err := s.issueTokenPair(ctx, claims.Subject, session.Family)
	if err != nil {
		return TokenPair{}, err
	}
	_ = deviceFingerprint
	return pair, nil
}

// Authenticate verifies a bearer access token and returns its subject (user id).
func (s *Service) Authenticate(_ context.Context, accessToken string) (string, error) {
	claims, err := s.tokens.Verify(accessToken, tokenTypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Me returns the current user's summary.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	user, found, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return User{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load user", err)
	}
	if !found {
		return User{}, huberrors.New(huberrors.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *Service) issueTokenPair(ctx context.Context, userID, family string) (TokenPair, error) {
	access, _, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return TokenPair{}, huberrors.Wrap(huberrors.KindInternalUnavailable, "sign access token", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return TokenPair{}, huberrors.Wrap(huberrors.KindInternalUnavailable, "sign refresh token", err)
	}

	if family == "" {
		family = uuid.NewString()
	}
	session := Session{
		SessionID:        uuid.NewString(),
		UserID:           userID,
		Family:           family,
		RefreshTokenHash: hashRefreshToken(refresh),
		ExpiresAt:        refreshExp,
	}
	if _, err := s.store.CreateSession(ctx, session); err != nil {
		return TokenPair{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "create session", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: refreshExp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
