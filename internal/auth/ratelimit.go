package auth

import "context"

// LoginGuard is the narrow rate-limiting surface auth needs: track failed
// login attempts per identity and per IP (scope "auth.login") and fail
// closed when the limiter itself errors, per spec §7.
type LoginGuard interface {
	Allow(ctx context.Context, scope, identity string) (bool, error)
	RecordFailure(ctx context.Context, scope, identity string) error
}
