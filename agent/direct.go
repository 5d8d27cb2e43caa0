package agent

import (
	"context"

	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/llm"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

// directSystemPrompt extends the shared prompt for the degraded mode where
// the protocol server is unreachable and no tools are available.
const directSystemPrompt = tools.SystemPrompt + `

Note: the Odoo data tools are currently unavailable. Answer from general
knowledge, and tell the user that live CRM data cannot be accessed right
now.`

// DirectRuntime answers straight from the configured model with no tools.
// It is the fallback when the protocol server cannot be reached.
type DirectRuntime struct {
	client llm.LLMClient
}

// NewDirectRuntime builds the tool-less fallback runtime.
func NewDirectRuntime(ctx context.Context, cfg *config.Config, creds config.Credentials) (*DirectRuntime, error) {
	client, err := llm.New(ctx, cfg.LLMClient, cfg.Model, creds)
	if err != nil {
		return nil, err
	}
	return &DirectRuntime{client: client}, nil
}

func (r *DirectRuntime) Respond(ctx context.Context, history []session.Message, prompt string) (string, error) {
	msgs := make([]session.Message, 0, len(history)+2)
	msgs = append(msgs, session.Message{Role: "system", Content: directSystemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, session.Message{Role: "user", Content: prompt})

	resp, err := r.client.Chat(ctx, msgs, nil)
	if err != nil {
		return "", errors.Wrapf(err, "model call failed")
	}
	return resp.Content, nil
}

func (r *DirectRuntime) Close() error { return nil }
