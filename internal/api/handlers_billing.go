package api

import (
	"context"

	"github.com/careerhub/hub/internal/billing"
)

func createIntentHandler(svc *billing.Service) func(ctx context.Context, userID string, req *billing.CreateIntentRequest) (billing.CreateIntentResponse, error) {
	return func(ctx context.Context, userID string, req *billing.CreateIntentRequest) (billing.CreateIntentResponse, error) {
		req.UserID = userID
		return svc.CreateIntent(ctx, *req)
	}
}

func confirmHandler(svc *billing.Service) func(ctx context.Context, userID string, req *billing.ConfirmRequest) (billing.ConfirmResponse, error) {
	return func(ctx context.Context, userID string, req *billing.ConfirmRequest) (billing.ConfirmResponse, error) {
		req.UserID = userID
		return svc.Confirm(ctx, *req)
	}
}
