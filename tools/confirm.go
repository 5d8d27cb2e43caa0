package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Confirmer asks the operator whether a mutating tool call may proceed.
// The returned string is the operator's raw reply.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (string, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) (string, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// AutoApprove approves every confirmation request.
type AutoApprove struct{}

func (AutoApprove) Confirm(ctx context.Context, prompt string) (string, error) { return "yes", nil }

// AutoDeny denies every confirmation request.
type AutoDeny struct{}

func (AutoDeny) Confirm(ctx context.Context, prompt string) (string, error) { return "no", nil }

// ConfirmableTool is an optional Tool extension that supplies the
// confirmation prompt and cancellation message for a mutating tool.
type ConfirmableTool interface {
	Tool
	ConfirmationPrompt(args map[string]any) string
	CancelMessage() string
}

// Invocation is one tool call arriving at the gate. RequestID correlates
// gate log lines with the transport request; the gate mints one if the
// caller has none.
type Invocation struct {
	Tool      string
	Args      map[string]any
	RequestID string
}

// Gate validates and executes tool calls, routing mutating tools through
// the confirmer first. Denial is a normal outcome, reported as text.
// Handler failures are also reported as text so the agent loop can relay
// them to the model; the error return is reserved for unknown tools and
// malformed arguments.
type Gate struct {
	registry  *Registry
	confirmer Confirmer
	logger    *slog.Logger
}

// NewGate builds a gate over the registry. A nil logger discards gate
// logging.
func NewGate(registry *Registry, confirmer Confirmer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{registry: registry, confirmer: confirmer, logger: logger}
}

// accepted reports whether the operator's reply counts as approval.
func accepted(reply string) bool {
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "yes", "y", "confirm":
		return true
	}
	return false
}

// Outcome is the gate's report of one tool call. Failed marks handler or
// confirmer failures that were flattened into Text; denial is a normal
// outcome and leaves Failed unset.
type Outcome struct {
	Text   string
	Failed bool
}

// Invoke runs one tool call through validation, confirmation, and
// execution.
func (g *Gate) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	t, err := g.registry.Tool(inv.Tool)
	if err != nil {
		return Outcome{}, err
	}
	args, err := ValidateArgs(t, inv.Args)
	if err != nil {
		return Outcome{}, err
	}

	if inv.RequestID == "" {
		inv.RequestID = uuid.NewString()
	}
	log := g.logger.With("tool", inv.Tool, "request_id", inv.RequestID)

	if t.Mutating() {
		prompt := confirmationPrompt(t, args)
		reply, err := g.confirmer.Confirm(ctx, prompt)
		if err != nil {
			log.Warn("confirmation failed", "error", err)
			return Outcome{Text: fmt.Sprintf("Could not confirm the action: %v", err), Failed: true}, nil
		}
		if !accepted(reply) {
			log.Info("mutation denied", "reply", reply)
			return Outcome{Text: cancelMessage(t)}, nil
		}
		log.Info("mutation confirmed")
	}

	out, err := t.Execute(ctx, args)
	if err != nil {
		log.Warn("tool failed", "error", err)
		return Outcome{Text: fmt.Sprintf("Error executing %s: %v", inv.Tool, err), Failed: true}, nil
	}
	return Outcome{Text: out}, nil
}

func confirmationPrompt(t Tool, args map[string]any) string {
	if ct, ok := t.(ConfirmableTool); ok {
		return ct.ConfirmationPrompt(args)
	}
	return fmt.Sprintf("Run tool '%s' with the given arguments? This action modifies data.", t.Name())
}

func cancelMessage(t Tool) string {
	if ct, ok := t.(ConfirmableTool); ok {
		return ct.CancelMessage()
	}
	return fmt.Sprintf("%s cancelled by user.", t.Name())
}
