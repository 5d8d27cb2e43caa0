// Package tools holds the registry of tools and resources advertised to
// agent runtimes, argument validation against declared schemas, and the
// confirmation gate every mutating tool must pass through.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Registry-level failures. Registration errors are fatal at start-up; the
// per-call sentinels are matched at the protocol boundary with errors.Is.
var (
	ErrDuplicateTool     = errors.New("tool already registered")
	ErrDuplicateResource = errors.New("resource already registered")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrUnknownResource   = errors.New("unknown resource")
	ErrRegistryFrozen    = errors.New("registry is frozen")
	ErrInvalidArguments  = errors.New("invalid arguments")
)

// Param describes one input parameter of a tool. Params keep their declared
// order so confirmation prompts and schemas render deterministically.
type Param struct {
	Name        string
	Type        string // "string", "integer", "number" or "boolean"
	Description string
	Required    bool
	Default     any
}

// Tool defines an action an agent runtime may invoke.
type Tool interface {
	Name() string
	Description() string
	Params() []Param
	// Mutating tools change persisted business data and are gated behind
	// user confirmation; the registry is the single source of truth.
	Mutating() bool
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Resource is a read-only text source. Resources never mutate and are never
// gated.
type Resource interface {
	URI() string
	Name() string
	Description() string
	Read(ctx context.Context) (string, error)
}

// Registry holds all registered tools and resources. Registration happens
// once at start-up; after Freeze the registry only serves lookups, so
// discovery from concurrent turns needs no further coordination.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	toolOrder []string
	resources map[string]Resource
	resOrder  []string
	frozen    bool
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
	}
}

// Register adds a tool. Re-registration under the same name fails and
// leaves the first registration intact.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register tool %q", ErrRegistryFrozen, t.Name())
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	r.toolOrder = append(r.toolOrder, t.Name())
	return nil
}

// RegisterResource adds a resource under its URI.
func (r *Registry) RegisterResource(res Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: cannot register resource %q", ErrRegistryFrozen, res.URI())
	}
	if _, exists := r.resources[res.URI()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateResource, res.URI())
	}
	r.resources[res.URI()] = res
	r.resOrder = append(r.resOrder, res.URI())
	return nil
}

// Freeze ends the registration phase. All later Register calls fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// Resource looks up a resource by URI.
func (r *Registry) Resource(uri string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, uri)
	}
	return res, nil
}

// Tools returns all tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name])
	}
	return out
}

// Resources returns all resources in registration order.
func (r *Registry) Resources() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resource, 0, len(r.resOrder))
	for _, uri := range r.resOrder {
		out = append(out, r.resources[uri])
	}
	return out
}

// Matches reports whether name matches any of the wildcard patterns. An
// invalid pattern is an error so a typo in a toolset does not silently
// expose nothing.
func Matches(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return false, fmt.Errorf("invalid tool pattern %q", pattern)
		}
	}
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid tool pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ValidateArgs checks args against the tool's declared params, applies
// defaults and normalizes numeric types (JSON decodes integers as float64).
// The returned map is a fresh copy; the caller's map is never modified.
func ValidateArgs(t Tool, args map[string]any) (map[string]any, error) {
	params := t.Params()
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Name] = true
	}
	for name := range args {
		if !known[name] {
			return nil, fmt.Errorf("%w: unexpected parameter %q for tool %q", ErrInvalidArguments, name, t.Name())
		}
	}

	out := make(map[string]any, len(params))
	for _, p := range params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				return nil, fmt.Errorf("%w: missing required parameter %q for tool %q", ErrInvalidArguments, p.Name, t.Name())
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}

		normalized, err := normalize(p, raw)
		if err != nil {
			return nil, err
		}
		out[p.Name] = normalized
	}
	return out, nil
}

func normalize(p Param, raw any) (any, error) {
	switch p.Type {
	case "string":
		s, ok := raw.(string)
		if !ok {
			return nil, typeError(p, raw)
		}
		return s, nil
	case "integer":
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, typeError(p, raw)
			}
			return int(v), nil
		}
		return nil, typeError(p, raw)
	case "number":
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
		return nil, typeError(p, raw)
	case "boolean":
		b, ok := raw.(bool)
		if !ok {
			return nil, typeError(p, raw)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: parameter %q has unsupported type %q", ErrInvalidArguments, p.Name, p.Type)
}

func typeError(p Param, raw any) error {
	return fmt.Errorf("%w: parameter %q expects %s, got %T", ErrInvalidArguments, p.Name, p.Type, raw)
}

// InputSchema renders the tool's params as a JSON-schema object for
// discovery responses.
func InputSchema(t Tool) map[string]any {
	properties := make(map[string]any)
	var required []string
	for _, p := range t.Params() {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// stringArg and intArg read values out of a map already normalized by
// ValidateArgs.
func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]any, name string) int {
	n, _ := args[name].(int)
	return n
}
