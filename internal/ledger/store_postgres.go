package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/careerhub/hub/internal/platform/database"
)

// PostgresStore implements Store against (user_energy, energy_transactions).
// Every mutating method opens its own transaction and takes exactly one
// `SELECT ... FOR UPDATE` lock on the energy row, per spec §5.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetEnergyRow(ctx context.Context, userID string) (EnergyRow, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, current_energy, max_energy, total_purchased, total_consumed,
		       last_recharge_at, subscription_type, updated_at
		FROM user_energy WHERE user_id = $1
	`, userID)
	row2, found, err := scanEnergyRow(row)
	return row2, found, err
}

func (s *PostgresStore) CreateEnergyRow(ctx context.Context, userID string, startingBalance int, subscription SubscriptionType) (EnergyRow, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_energy (user_id, current_energy, max_energy, total_purchased, total_consumed, subscription_type, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $5)
	`, userID, startingBalance, MaxEnergy, string(subscription), now)
	if err != nil {
		return EnergyRow{}, err
	}
	return EnergyRow{
		UserID:           userID,
		CurrentEnergy:    startingBalance,
		MaxEnergy:        MaxEnergy,
		SubscriptionType: subscription,
		UpdatedAt:        now,
	}, nil
}

func (s *PostgresStore) FindTransactionByIdempotencyKey(ctx context.Context, userID, key string) (Transaction, bool, error) {
	if key == "" {
		return Transaction{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_id, user_id, action_type, action, amount, reason, energy_before, energy_after,
		       context, app_source, feature_used, idempotency_key, provider_ref, refunded_tx_id, created_at
		FROM energy_transactions WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key)
	return scanTransaction(row)
}

func (s *PostgresStore) GetTransaction(ctx context.Context, txID string) (Transaction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_id, user_id, action_type, action, amount, reason, energy_before, energy_after,
		       context, app_source, feature_used, idempotency_key, provider_ref, refunded_tx_id, created_at
		FROM energy_transactions WHERE tx_id = $1
	`, txID)
	return scanTransaction(row)
}

func (s *PostgresStore) FindRefundOfTransaction(ctx context.Context, origTxID string) (Transaction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_id, user_id, action_type, action, amount, reason, energy_before, energy_after,
		       context, app_source, feature_used, idempotency_key, provider_ref, refunded_tx_id, created_at
		FROM energy_transactions WHERE refunded_tx_id = $1
	`, origTxID)
	return scanTransaction(row)
}

func (s *PostgresStore) FindTransactionByProviderRef(ctx context.Context, providerRef string) (Transaction, bool, error) {
	if providerRef == "" {
		return Transaction{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_id, user_id, action_type, action, amount, reason, energy_before, energy_after,
		       context, app_source, feature_used, idempotency_key, provider_ref, refunded_tx_id, created_at
		FROM energy_transactions WHERE provider_ref = $1
	`, providerRef)
	return scanTransaction(row)
}

// ApplyConsume locks the energy row, re-reads the balance, verifies funds
// unless the user is unlimited, writes the Energy row and Transaction within
// the same transaction.
func (s *PostgresStore) ApplyConsume(ctx context.Context, userID string, cost int, tx Transaction) (EnergyRow, Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	defer func() { _ = dbTx.Rollback() }()

	row, found, err := lockEnergyRow(ctx, dbTx, userID)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if !found {
		return EnergyRow{}, Transaction{}, sql.ErrNoRows
	}

	before := row.CurrentEnergy
	effectiveCost := cost
	after := before
	if row.IsUnlimited() {
		effectiveCost = 0
	} else {
		if before < cost {
			return EnergyRow{}, Transaction{}, &InsufficientEnergyError{Required: cost, Current: before}
		}
		after = before - cost
	}

	now := time.Now().UTC()
	if err := updateEnergyRow(ctx, dbTx, userID, after, row.TotalPurchased, row.TotalConsumed+effectiveCost, row.LastRechargeAt, now); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	tx.Amount = effectiveCost
	tx.EnergyBefore = before
	tx.EnergyAfter = after
	tx.CreatedAt = now
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	if err := dbTx.Commit(); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	row.CurrentEnergy = after
	row.TotalConsumed += effectiveCost
	row.UpdatedAt = now
	return row, tx, nil
}

// ApplyRefund locks the energy row, credits amount back, writes tx.
func (s *PostgresStore) ApplyRefund(ctx context.Context, userID string, amount int, tx Transaction) (EnergyRow, Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	defer func() { _ = dbTx.Rollback() }()

	row, found, err := lockEnergyRow(ctx, dbTx, userID)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if !found {
		return EnergyRow{}, Transaction{}, sql.ErrNoRows
	}

	before := row.CurrentEnergy
	after := before + amount
	if after > row.MaxEnergy {
		after = row.MaxEnergy
	}
	now := time.Now().UTC()
	if err := updateEnergyRow(ctx, dbTx, userID, after, row.TotalPurchased, row.TotalConsumed, row.LastRechargeAt, now); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	tx.EnergyBefore = before
	tx.EnergyAfter = after
	tx.CreatedAt = now
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	row.CurrentEnergy = after
	row.UpdatedAt = now
	return row, tx, nil
}

// ApplyPurchase locks the energy row, credits the pack amount (capped to max
// unless cumulative) plus bonus, writes tx.
func (s *PostgresStore) ApplyPurchase(ctx context.Context, userID string, credit int, cumulative bool, tx Transaction) (EnergyRow, Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	defer func() { _ = dbTx.Rollback() }()

	row, found, err := lockEnergyRow(ctx, dbTx, userID)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if !found {
		return EnergyRow{}, Transaction{}, sql.ErrNoRows
	}

	before := row.CurrentEnergy
	after := before + credit
	if !cumulative && after > row.MaxEnergy {
		after = row.MaxEnergy
	}
	now := time.Now().UTC()
	lastRecharge := now
	if err := updateEnergyRow(ctx, dbTx, userID, after, row.TotalPurchased+credit, row.TotalConsumed, &lastRecharge, now); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	tx.EnergyBefore = before
	tx.EnergyAfter = after
	tx.CreatedAt = now
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	row.CurrentEnergy = after
	row.TotalPurchased += credit
	row.LastRechargeAt = &lastRecharge
	row.UpdatedAt = now
	return row, tx, nil
}

// ApplySubscription locks the energy row, flips subscription_type, and
// writes a zero-amount tx recording the upgrade. The balance is untouched.
func (s *PostgresStore) ApplySubscription(ctx context.Context, userID string, subscription SubscriptionType, tx Transaction) (EnergyRow, Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	defer func() { _ = dbTx.Rollback() }()

	row, found, err := lockEnergyRow(ctx, dbTx, userID)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if !found {
		return EnergyRow{}, Transaction{}, sql.ErrNoRows
	}

	now := time.Now().UTC()
	_, err = dbTx.ExecContext(ctx, `
		UPDATE user_energy SET subscription_type = $2, updated_at = $3 WHERE user_id = $1
	`, userID, string(subscription), now)
	if err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	tx.Amount = 0
	tx.EnergyBefore = row.CurrentEnergy
	tx.EnergyAfter = row.CurrentEnergy
	tx.CreatedAt = now
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return EnergyRow{}, Transaction{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return EnergyRow{}, Transaction{}, err
	}

	row.SubscriptionType = subscription
	row.UpdatedAt = now
	return row, tx, nil
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

func lockEnergyRow(ctx context.Context, tx *sql.Tx, userID string) (EnergyRow, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT user_id, current_energy, max_energy, total_purchased, total_consumed,
		       last_recharge_at, subscription_type, updated_at
		FROM user_energy WHERE user_id = $1
		FOR UPDATE
	`, userID)
	return scanEnergyRow(row)
}

func updateEnergyRow(ctx context.Context, tx *sql.Tx, userID string, current, totalPurchased, totalConsumed int, lastRecharge *time.Time, now time.Time) error {
	var lr sql.NullTime
	if lastRecharge != nil {
		lr = database.ToNullTime(*lastRecharge)
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE user_energy
		SET current_energy = $2, total_purchased = $3, total_consumed = $4, last_recharge_at = $5, updated_at = $6
		WHERE user_id = $1
	`, userID, current, totalPurchased, totalConsumed, lr, now)
	return err
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	contextJSON, err := json.Marshal(t.Context)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO energy_transactions (
			tx_id, user_id, action_type, action, amount, reason, energy_before, energy_after,
			context, app_source, feature_used, idempotency_key, provider_ref, refunded_tx_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, t.TxID, t.UserID, string(t.ActionType), t.Action, t.Amount, t.Reason, t.EnergyBefore, t.EnergyAfter,
		contextJSON, t.AppSource, t.FeatureUsed, database.ToNullString(t.IdempotencyKey),
		database.ToNullString(t.ProviderRef), database.ToNullString(t.RefundedTxID), t.CreatedAt)
	return err
}

type scannableRow interface {
	Scan(dest ...interface{}) error
}

func scanEnergyRow(row scannableRow) (EnergyRow, bool, error) {
	var r EnergyRow
	var lastRecharge sql.NullTime
	var subscription string
	err := row.Scan(&r.UserID, &r.CurrentEnergy, &r.MaxEnergy, &r.TotalPurchased, &r.TotalConsumed,
		&lastRecharge, &subscription, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return EnergyRow{}, false, nil
	}
	if err != nil {
		return EnergyRow{}, false, err
	}
	if lastRecharge.Valid {
		t := lastRecharge.Time
		r.LastRechargeAt = &t
	}
	r.SubscriptionType = SubscriptionType(subscription)
	return r, true, nil
}

func scanTransaction(row scannableRow) (Transaction, bool, error) {
	var t Transaction
	var actionType string
	var contextRaw []byte
	var idempotencyKey, providerRef, refundedTxID sql.NullString

	err := row.Scan(&t.TxID, &t.UserID, &actionType, &t.Action, &t.Amount, &t.Reason, &t.EnergyBefore, &t.EnergyAfter,
		&contextRaw, &t.AppSource, &t.FeatureUsed, &idempotencyKey, &providerRef, &refundedTxID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, err
	}
	t.ActionType = ActionType(actionType)
	t.IdempotencyKey = database.FromNullString(idempotencyKey)
	t.ProviderRef = database.FromNullString(providerRef)
	t.RefundedTxID = database.FromNullString(refundedTxID)
	if len(contextRaw) > 0 {
		_ = json.Unmarshal(contextRaw, &t.Context)
	}
	return t, true, nil
}

var _ Store = (*PostgresStore)(nil)
