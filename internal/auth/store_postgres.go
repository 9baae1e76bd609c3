package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/careerhub/hub/internal/platform/database"
)

// PostgresStore implements Store against (users, sessions).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed auth store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, is_unlimited, refresh_family, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, u.UserID, u.Email, u.PasswordHash, database.ToNullString(u.DisplayName), u.Unlimited, u.UserID, u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, is_unlimited, created_at
		FROM users WHERE email = $1 AND deleted_at IS NULL
	`, email)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, is_unlimited, created_at
		FROM users WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	return scanUser(row)
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	sess.IssuedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, user_id, refresh_family, refresh_token_hash, device_fingerprint,
			issued_at, expires_at, revoked
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sess.SessionID, sess.UserID, sess.Family, sess.RefreshTokenHash,
		database.ToNullString(sess.DeviceFingerprint), sess.IssuedAt, sess.ExpiresAt, sess.Revoked)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PostgresStore) GetSessionByRefreshHash(ctx context.Context, hash string) (Session, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, refresh_family, refresh_token_hash, device_fingerprint,
		       issued_at, expires_at, revoked
		FROM sessions WHERE refresh_token_hash = $1
	`, hash)
	return scanSession(row)
}

func (s *PostgresStore) RevokeSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked = true WHERE session_id = $1`, sessionID)
	return err
}

func (s *PostgresStore) RevokeFamily(ctx context.Context, family string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked = true WHERE refresh_family = $1`, family)
	return err
}

type scannableRow interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scannableRow) (User, bool, error) {
	var u User
	var displayName sql.NullString
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &displayName, &u.Unlimited, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	u.DisplayName = database.FromNullString(displayName)
	return u, true, nil
}

func scanSession(row scannableRow) (Session, bool, error) {
	var s Session
	var fingerprint sql.NullString
	err := row.Scan(&s.SessionID, &s.UserID, &s.Family, &s.RefreshTokenHash, &fingerprint,
		&s.IssuedAt, &s.ExpiresAt, &s.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	s.DeviceFingerprint = database.FromNullString(fingerprint)
	return s, true, nil
}

var _ Store = (*PostgresStore)(nil)
