package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/llm"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
)

const (
	missingCredentialReply = "No API key is configured for the AI agent. Please configure your Anthropic API key in the agent settings and try again."
	timeoutReply           = "The request timed out before the agent could answer. Please try again."
)

// Bridge exposes the agent to synchronous callers: one blocking Send per
// user message, one agent turn behind it. Every call selects a runtime
// fresh and tears it down afterwards, so no agent state survives between
// calls; the only thing carried over is the persisted conversation log.
type Bridge struct {
	providers   []Provider
	conv        *session.Conversation
	logger      *slog.Logger
	turnTimeout time.Duration

	mu sync.Mutex
}

// NewBridge wires the default provider order: the MCP-backed runtime
// first, the tool-less direct runtime as fallback.
func NewBridge(cfg *config.Config, creds config.Credentials, conv *session.Conversation, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	providers := []Provider{
		{
			Kind: "mcp",
			Initialize: func(ctx context.Context) (Runtime, error) {
				return NewMCPRuntime(ctx, cfg, creds, logger)
			},
		},
		{
			Kind: "direct",
			Initialize: func(ctx context.Context) (Runtime, error) {
				return NewDirectRuntime(ctx, cfg, creds)
			},
		},
	}
	return NewBridgeWithProviders(providers, conv, logger, cfg.TurnTimeout)
}

// NewBridgeWithProviders builds a bridge over an explicit provider list.
func NewBridgeWithProviders(providers []Provider, conv *session.Conversation, logger *slog.Logger, turnTimeout time.Duration) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if turnTimeout <= 0 {
		turnTimeout = 120 * time.Second
	}
	return &Bridge{
		providers:   providers,
		conv:        conv,
		logger:      logger,
		turnTimeout: turnTimeout,
	}
}

// Send runs one agent turn for the given user message and blocks until it
// completes. It never returns an error: failures, denials, timeouts and
// panics all come back as text, since the caller is a chat surface with
// nothing better to do with an error value.
func (b *Bridge) Send(message string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.turnTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("agent turn panicked", "panic", r)
				ch <- result{err: errors.New("agent turn panicked: %v", r)}
			}
		}()

		rt, kind, err := Select(ctx, b.logger, b.providers)
		if err != nil {
			ch <- result{err: err}
			return
		}
		defer rt.Close()

		text, err := rt.Respond(ctx, b.history(), message)
		if err != nil {
			b.logger.Warn("agent turn failed", "runtime", kind, "error", err)
			ch <- result{err: err}
			return
		}
		ch <- result{text: text}
	}()

	var reply string
	select {
	case <-ctx.Done():
		b.logger.Warn("agent turn timed out", "timeout", b.turnTimeout)
		reply = timeoutReply
	case res := <-ch:
		switch {
		case res.err == nil:
			reply = res.text
		case errors.Is(res.err, llm.ErrMissingCredential):
			reply = missingCredentialReply
		default:
			reply = fmt.Sprintf("Error communicating with AI agent: %v", res.err)
		}
	}

	b.record(message, reply)
	return reply
}

// history flattens the conversation log into model messages.
func (b *Bridge) history() []session.Message {
	if b.conv == nil {
		return nil
	}
	msgs := make([]session.Message, 0, 2*len(b.conv.Turns))
	for _, t := range b.conv.Turns {
		msgs = append(msgs,
			session.Message{Role: "user", Content: t.User},
			session.Message{Role: "assistant", Content: t.Assistant},
		)
	}
	return msgs
}

// record appends the exchange to the conversation log. The reply recorded
// is exactly what the caller saw, error text included.
func (b *Bridge) record(user, assistant string) {
	if b.conv == nil {
		return
	}
	b.conv.AddTurn(user, assistant)
	if err := b.conv.Save(); err != nil {
		b.logger.Warn("failed to save conversation", "error", err)
	}
}
