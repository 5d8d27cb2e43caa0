package tools

import (
	"context"
	"errors"
	"testing"
)

type fakeTool struct {
	name     string
	mutating bool
	params   []Param
	run      func(ctx context.Context, args map[string]any) (string, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool for tests" }
func (f *fakeTool) Params() []Param     { return f.params }
func (f *fakeTool) Mutating() bool      { return f.mutating }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if f.run == nil {
		return "ok", nil
	}
	return f.run(ctx, args)
}

func TestRegistryDuplicateTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: "echo"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(&fakeTool{name: "echo"})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistryFrozen(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	if err := r.Register(&fakeTool{name: "late"}); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("expected ErrRegistryFrozen, got %v", err)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Tool("nope"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
}

func TestMatchesGlob(t *testing.T) {
	patterns := []string{"*lead*"}
	for name, want := range map[string]bool{
		"search_leads":      true,
		"create_lead":       true,
		"get_sales_summary": false,
	} {
		got, err := Matches(patterns, name)
		if err != nil {
			t.Fatalf("Matches(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("Matches(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := Matches([]string{"[bad"}, "search_leads"); err == nil {
		t.Error("expected error for invalid pattern")
	}
	// A typo must surface even when an earlier pattern already matched.
	if _, err := Matches([]string{"*lead*", "[bad"}, "create_lead"); err == nil {
		t.Error("expected error when any pattern is invalid")
	}
}

func TestValidateArgs(t *testing.T) {
	tool := &fakeTool{
		name: "search",
		params: []Param{
			{Name: "query", Type: "string", Required: true},
			{Name: "limit", Type: "integer", Default: 5},
		},
	}

	t.Run("defaults applied", func(t *testing.T) {
		args, err := ValidateArgs(tool, map[string]any{"query": "acme"})
		if err != nil {
			t.Fatalf("ValidateArgs: %v", err)
		}
		if args["limit"] != 5 {
			t.Errorf("expected default limit 5, got %v", args["limit"])
		}
	})

	t.Run("json float becomes int", func(t *testing.T) {
		args, err := ValidateArgs(tool, map[string]any{"query": "acme", "limit": float64(3)})
		if err != nil {
			t.Fatalf("ValidateArgs: %v", err)
		}
		if args["limit"] != 3 {
			t.Errorf("expected limit 3, got %v (%T)", args["limit"], args["limit"])
		}
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := ValidateArgs(tool, map[string]any{"limit": 1})
		if !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("expected ErrInvalidArguments, got %v", err)
		}
	})

	t.Run("unknown parameter", func(t *testing.T) {
		_, err := ValidateArgs(tool, map[string]any{"query": "x", "bogus": true})
		if !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("expected ErrInvalidArguments, got %v", err)
		}
	})

	t.Run("fractional integer rejected", func(t *testing.T) {
		_, err := ValidateArgs(tool, map[string]any{"query": "x", "limit": 2.5})
		if !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("expected ErrInvalidArguments, got %v", err)
		}
	})
}

func TestInputSchema(t *testing.T) {
	tool := &fakeTool{
		name: "search",
		params: []Param{
			{Name: "query", Type: "string", Description: "term", Required: true},
			{Name: "limit", Type: "integer", Default: 5},
		},
	}
	schema := InputSchema(tool)
	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) != 2 {
		t.Fatalf("unexpected properties: %v", schema["properties"])
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "query" {
		t.Errorf("unexpected required: %v", schema["required"])
	}
}
