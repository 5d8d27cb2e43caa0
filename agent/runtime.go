// Package agent drives one model turn at a time against the registered
// tools, selecting the richest runtime the current configuration supports.
package agent

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/tmanhococ/V2-Odoo-Agent/llm"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
)

// ErrRuntimeUnavailable reports that no runtime could be initialized.
var ErrRuntimeUnavailable = stderrors.New("no agent runtime available")

// ErrMissingCredential re-exports the llm sentinel so callers selecting
// runtimes need only this package to classify the failure.
var ErrMissingCredential = llm.ErrMissingCredential

// Runtime answers a single user prompt given prior conversation history.
// A runtime lives for one call; Close releases whatever it holds.
type Runtime interface {
	Respond(ctx context.Context, history []session.Message, prompt string) (string, error)
	Close() error
}

// Provider is one runtime candidate. Initialize either yields a working
// runtime or explains why this candidate cannot serve right now.
type Provider struct {
	Kind       string
	Initialize func(ctx context.Context) (Runtime, error)
}

// Select tries providers in order and returns the first runtime that
// initializes. Selection happens fresh on every call so a provider that
// recovers (a server coming back, a key appearing) is picked up without a
// restart. The returned error joins every candidate's failure.
func Select(ctx context.Context, logger *slog.Logger, providers []Provider) (Runtime, string, error) {
	var failures []error
	for _, p := range providers {
		rt, err := p.Initialize(ctx)
		if err != nil {
			logger.Warn("runtime unavailable", "kind", p.Kind, "error", err)
			failures = append(failures, err)
			continue
		}
		logger.Debug("runtime selected", "kind", p.Kind)
		return rt, p.Kind, nil
	}
	return nil, "", stderrors.Join(append([]error{ErrRuntimeUnavailable}, failures...)...)
}
