package billing

import "context"

// Store persists payment intents (spec §4.K's "pending transaction
// placeholder").
type Store interface {
	CreateIntent(ctx context.Context, intent Intent) (Intent, error)
	GetIntent(ctx context.Context, intentID string) (Intent, bool, error)
	UpdateStatus(ctx context.Context, intentID, status, txID string) error
}
