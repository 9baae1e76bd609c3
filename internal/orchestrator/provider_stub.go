package orchestrator

import (
	"context"
	"fmt"
)

// EchoProvider is a development-mode Provider that echoes the assembled
// prompt back instead of calling a real model backend. Mirrors the
// reference gateway's own dev stub: useful for wiring the full request path
// end to end before an AI provider key is configured.
type EchoProvider struct{}

// Generate implements Provider.
func (EchoProvider) Generate(_ context.Context, prompt Prompt) (string, error) {
	return fmt.Sprintf("[dev-stub reply]\n%s\n---\n%s", prompt.Context, prompt.User), nil
}
