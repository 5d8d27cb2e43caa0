package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmanhococ/V2-Odoo-Agent/odoo"
)

func crmGate(t *testing.T, c Confirmer) (*Gate, *odoo.MemoryStore) {
	t.Helper()
	store := seededStore()
	r := NewRegistry()
	if err := RegisterCRM(r, store); err != nil {
		t.Fatalf("RegisterCRM: %v", err)
	}
	r.Freeze()
	return NewGate(r, c, nil), store
}

func TestGateDenialLeavesStoreUntouched(t *testing.T) {
	gate, store := crmGate(t, AutoDeny{})

	out, err := gate.Invoke(context.Background(), Invocation{
		Tool: "create_lead",
		Args: map[string]any{"name": "Hooli"},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Text != "Lead creation cancelled by user." {
		t.Errorf("unexpected denial message: %q", out.Text)
	}
	if out.Failed {
		t.Error("denial is a normal outcome, not a failure")
	}
	if store.MutationCount() != 0 {
		t.Errorf("denied call must not mutate, got %d mutations", store.MutationCount())
	}
}

func TestGateApprovalVariants(t *testing.T) {
	for _, reply := range []string{"yes", "Y", "CONFIRM", "  yes  "} {
		t.Run(reply, func(t *testing.T) {
			gate, store := crmGate(t, ConfirmerFunc(func(ctx context.Context, prompt string) (string, error) {
				if !strings.HasPrefix(prompt, "Create a new lead with name 'Hooli'") {
					t.Errorf("unexpected prompt: %q", prompt)
				}
				return reply, nil
			}))

			out, err := gate.Invoke(context.Background(), Invocation{
				Tool: "create_lead",
				Args: map[string]any{"name": "Hooli"},
			})
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if !strings.HasPrefix(out.Text, "Lead created successfully!") {
				t.Errorf("unexpected output: %q", out.Text)
			}
			if out.Failed {
				t.Error("successful call must not be marked failed")
			}
			if store.MutationCount() != 1 {
				t.Errorf("expected 1 mutation, got %d", store.MutationCount())
			}
		})
	}
}

func TestGateRejectsNonAffirmativeReplies(t *testing.T) {
	for _, reply := range []string{"no", "n", "yess", "ok", "sure", ""} {
		t.Run("reply_"+reply, func(t *testing.T) {
			gate, store := crmGate(t, ConfirmerFunc(func(ctx context.Context, prompt string) (string, error) {
				return reply, nil
			}))

			out, err := gate.Invoke(context.Background(), Invocation{
				Tool: "create_customer",
				Args: map[string]any{"name": "Vandelay"},
			})
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if out.Text != "Customer creation cancelled by user." {
				t.Errorf("reply %q should deny, got %q", reply, out.Text)
			}
			if store.MutationCount() != 0 {
				t.Errorf("denied call must not mutate")
			}
		})
	}
}

func TestGateNonMutatingSkipsConfirmation(t *testing.T) {
	called := false
	gate, _ := crmGate(t, ConfirmerFunc(func(ctx context.Context, prompt string) (string, error) {
		called = true
		return "no", nil
	}))

	out, err := gate.Invoke(context.Background(), Invocation{
		Tool: "search_leads",
		Args: map[string]any{"query": "acme"},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if called {
		t.Error("read-only tool must not ask for confirmation")
	}
	if !strings.Contains(out.Text, "Acme Corp") {
		t.Errorf("unexpected output: %q", out.Text)
	}
}

func TestGateHandlerFailureBecomesText(t *testing.T) {
	gate, store := crmGate(t, AutoApprove{})
	store.FailWith(errors.New("connection refused"))

	out, err := gate.Invoke(context.Background(), Invocation{
		Tool: "get_sales_summary",
	})
	if err != nil {
		t.Fatalf("handler failure must not surface as error, got %v", err)
	}
	if !strings.Contains(out.Text, "Error executing get_sales_summary") {
		t.Errorf("unexpected failure text: %q", out.Text)
	}
	if !out.Failed {
		t.Error("handler failure must be marked failed")
	}
}

func TestGateConfirmerFailureBecomesText(t *testing.T) {
	gate, store := crmGate(t, ConfirmerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("stdin closed")
	}))

	out, err := gate.Invoke(context.Background(), Invocation{
		Tool: "create_lead",
		Args: map[string]any{"name": "Hooli"},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(out.Text, "Could not confirm the action") {
		t.Errorf("unexpected output: %q", out.Text)
	}
	if !out.Failed {
		t.Error("confirmer failure must be marked failed")
	}
	if store.MutationCount() != 0 {
		t.Errorf("unconfirmed call must not mutate")
	}
}

func TestGateUnknownToolAndBadArgs(t *testing.T) {
	gate, _ := crmGate(t, AutoApprove{})

	if _, err := gate.Invoke(context.Background(), Invocation{Tool: "delete_everything"}); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
	_, err := gate.Invoke(context.Background(), Invocation{
		Tool: "search_leads",
		Args: map[string]any{"bogus": 1},
	})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("expected ErrInvalidArguments, got %v", err)
	}
}
