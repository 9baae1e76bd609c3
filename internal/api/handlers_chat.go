package api

import (
	"context"

	"github.com/careerhub/hub/internal/gdpr"
	"github.com/careerhub/hub/internal/orchestrator"
)

// chatHandler routes a chat turn through the orchestrator and, on success,
// explicitly logs the generated-content processing via gdpr.Recorder — the
// AI response is personal data processed on the user's behalf.
func chatHandler(o *orchestrator.Orchestrator, recorder *gdpr.Recorder) func(ctx context.Context, userID string, req *orchestrator.ChatRequest) (orchestrator.ChatResponse, error) {
	return func(ctx context.Context, userID string, req *orchestrator.ChatRequest) (orchestrator.ChatResponse, error) {
		req.UserID = userID
		resp, err := o.Chat(ctx, *req)
		if err != nil {
			return orchestrator.ChatResponse{}, err
		}
		if recorder != nil {
			_ = recorder.RecordProcessing(ctx, userID, gdpr.CategoryGeneratedContent, gdpr.PurposeServiceProvision,
				[]string{"message", "app_context"}, gdpr.WithAutomatedDecision())
		}
		return resp, nil
	}
}
