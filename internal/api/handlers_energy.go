package api

import (
	"context"

	"github.com/careerhub/hub/internal/gate"
)

// canPerformHandler, consumeHandler, and refundHandler all override any
// user_id carried in the request body with the bearer-authenticated
// identity: a client can query or spend only its own energy balance.

func canPerformHandler(g *gate.Gate) func(ctx context.Context, userID string, req *gate.CanPerformRequest) (gate.CanPerformResponse, error) {
	return func(ctx context.Context, userID string, req *gate.CanPerformRequest) (gate.CanPerformResponse, error) {
		req.UserID = userID
		return g.CanPerform(ctx, *req)
	}
}

func consumeHandler(g *gate.Gate) func(ctx context.Context, userID string, req *gate.ConsumeRequest) (gate.ConsumeResponse, error) {
	return func(ctx context.Context, userID string, req *gate.ConsumeRequest) (gate.ConsumeResponse, error) {
		req.UserID = userID
		return g.Consume(ctx, *req)
	}
}

func refundHandler(g *gate.Gate) func(ctx context.Context, userID string, req *gate.RefundRequest) (gate.ConsumeResponse, error) {
	return func(ctx context.Context, userID string, req *gate.RefundRequest) (gate.ConsumeResponse, error) {
		req.UserID = userID
		return g.Refund(ctx, *req)
	}
}
