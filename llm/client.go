package llm

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

// ErrMissingCredential marks constructor failures caused by an absent API
// key or unconfigured cloud credentials, as opposed to transport errors.
var ErrMissingCredential = stderrors.New("missing credential")

// LLMClient is the interface for interacting with a Large Language Model.
type LLMClient interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// New builds a client for the named provider. Credentials come from creds
// first and the environment second.
func New(ctx context.Context, provider, model string, creds config.Credentials) (LLMClient, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicLLMClient(ctx, model, creds)
	case "openai":
		return NewOpenAILLMClient(ctx, model, creds)
	case "gemini":
		return NewGeminiLLMClient(ctx, model, creds)
	case "bedrock":
		return NewBedrockLLMClient(ctx, model)
	case "mock":
		return &MockLLMClient{}, nil
	}
	return nil, errors.New("unsupported llm_client %q", provider)
}

// MockLLMClient parrots the last user message back. Useful for wiring
// tests that need a client but no network.
type MockLLMClient struct {
	// Respond, when set, overrides the default parroting behavior.
	Respond func(messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

func (m *MockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	if m.Respond != nil {
		return m.Respond(messages, availableTools)
	}
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Message{
		Role:    "assistant",
		Content: fmt.Sprintf("I am a mock LLM. You said: '%s'.", last),
	}, nil
}
