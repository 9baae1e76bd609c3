package ledger

import "context"

// Store is the Energy Ledger's persistence contract. Implementations must
// serialize mutations per user via a row-level lock held for the duration
// of the transaction (spec §5 locking discipline).
type Store interface {
	// GetEnergyRow returns the user's row, creating none if absent.
	GetEnergyRow(ctx context.Context, userID string) (EnergyRow, bool, error)

	// CreateEnergyRow inserts the initial row for a newly registered user.
	CreateEnergyRow(ctx context.Context, userID string, startingBalance int, subscription SubscriptionType) (EnergyRow, error)

	// FindTransactionByIdempotencyKey supports idempotent replay of consume.
	FindTransactionByIdempotencyKey(ctx context.Context, userID, key string) (Transaction, bool, error)

	// GetTransaction fetches a transaction by id, used by Refund to validate
	// the original tx exists and is of type consume.
	GetTransaction(ctx context.Context, txID string) (Transaction, bool, error)

	// FindRefundOfTransaction returns the refund transaction already
	// recorded against origTxID, if any, making Refund idempotent.
	FindRefundOfTransaction(ctx context.Context, origTxID string) (Transaction, bool, error)

	// FindTransactionByProviderRef supports idempotent purchase confirmation.
	FindTransactionByProviderRef(ctx context.Context, providerRef string) (Transaction, bool, error)

	// ApplyConsume locks the energy row, verifies funds (unless unlimited),
	// debits it, and writes tx within a single transaction.
	ApplyConsume(ctx context.Context, userID string, cost int, tx Transaction) (EnergyRow, Transaction, error)

	// ApplyRefund locks the energy row, credits it, and writes tx within a
	// single transaction.
	ApplyRefund(ctx context.Context, userID string, amount int, tx Transaction) (EnergyRow, Transaction, error)

	// ApplyPurchase locks the energy row, credits the pack's energy (capped
	// to max unless cumulative) plus bonus, and writes tx within a single
	// transaction.
	ApplyPurchase(ctx context.Context, userID string, credit int, cumulative bool, tx Transaction) (EnergyRow, Transaction, error)

	// ApplySubscription locks the energy row, flips subscription_type (the
	// balance itself is untouched), and writes a zero-amount tx recording
	// the upgrade within a single transaction.
	ApplySubscription(ctx context.Context, userID string, subscription SubscriptionType, tx Transaction) (EnergyRow, Transaction, error)
}
