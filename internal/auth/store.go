package auth

import "context"

// Store persists users and sessions.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, bool, error)
	GetUserByID(ctx context.Context, userID string) (User, bool, error)

	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSessionByRefreshHash(ctx context.Context, hash string) (Session, bool, error)
	RevokeSession(ctx context.Context, sessionID string) error
	RevokeFamily(ctx context.Context, family string) error
}
