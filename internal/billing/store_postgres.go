package billing

import (
	"context"
	"database/sql"
	"time"

	"github.com/careerhub/hub/internal/platform/database"
)

// PostgresStore implements Store against payment_intents.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed billing store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIntent(ctx context.Context, intent Intent) (Intent, error) {
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_intents (intent_id, user_id, pack, currency, amount_cents, status, client_secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, intent.IntentID, intent.UserID, intent.Pack, intent.Currency, intent.AmountCents, intent.Status, intent.ClientSecret, now)
	if err != nil {
		return Intent{}, err
	}
	return intent, nil
}

func (s *PostgresStore) GetIntent(ctx context.Context, intentID string) (Intent, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT intent_id, user_id, pack, currency, amount_cents, status, client_secret,
		       tx_id, created_at, updated_at
		FROM payment_intents WHERE intent_id = $1
	`, intentID)
	return scanIntent(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, intentID, status, txID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_intents SET status = $2, tx_id = $3, updated_at = $4 WHERE intent_id = $1
	`, intentID, status, database.ToNullString(txID), time.Now().UTC())
	return err
}

type scannableRow interface {
	Scan(dest ...interface{}) error
}

func scanIntent(row scannableRow) (Intent, bool, error) {
	var i Intent
	var txID sql.NullString
	err := row.Scan(&i.IntentID, &i.UserID, &i.Pack, &i.Currency, &i.AmountCents, &i.Status,
		&i.ClientSecret, &txID, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return Intent{}, false, nil
	}
	if err != nil {
		return Intent{}, false, err
	}
	i.TxID = database.FromNullString(txID)
	return i, true, nil
}

var _ Store = (*PostgresStore)(nil)
