package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

// mockTool is a minimal tool for conversion tests.
type mockTool struct {
	name        string
	description string
	params      []tools.Param
	mutating    bool
}

func (m *mockTool) Name() string          { return m.name }
func (m *mockTool) Description() string   { return m.description }
func (m *mockTool) Params() []tools.Param { return m.params }
func (m *mockTool) Mutating() bool        { return m.mutating }
func (m *mockTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return "mock result", nil
}

func TestConvertMessagesToAnthropicFormat(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "You are OdooBot."},
		{Role: "user", Content: "Find leads for acme"},
	}

	result, system := convertMessagesToAnthropicFormat(messages)
	if system != "You are OdooBot." {
		t.Errorf("expected system prompt, got %q", system)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result))
	}
	if result[0]["role"] != "user" {
		t.Errorf("expected role 'user', got '%s'", result[0]["role"])
	}

	// Assistant message carrying a tool call.
	messages = []session.Message{
		{
			Role: "assistant",
			ToolCalls: []session.ToolCall{
				{
					ToolCallID: "call_1",
					Name:       "search_leads",
					Args: map[string]interface{}{
						"query": "acme",
					},
				},
			},
		},
	}

	result, _ = convertMessagesToAnthropicFormat(messages)
	if len(result) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result))
	}
	if result[0]["role"] != "assistant" {
		t.Errorf("expected role 'assistant', got '%s'", result[0]["role"])
	}

	// Tool result comes back as a user message.
	messages = []session.Message{
		{
			Role:    "tool",
			Content: "Found the following leads:",
			ToolCalls: []session.ToolCall{
				{ToolCallID: "call_1", Name: "search_leads"},
			},
		},
	}

	result, _ = convertMessagesToAnthropicFormat(messages)
	if len(result) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result))
	}
	if result[0]["role"] != "user" {
		t.Errorf("expected role 'user', got '%s'", result[0]["role"])
	}
}

func TestCreateAnthropicRequest(t *testing.T) {
	messages := []map[string]interface{}{
		{
			"role": "user",
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": "Hello!",
				},
			},
		},
	}

	body, err := createAnthropicRequest(messages, "You are OdooBot.", []tools.Tool{
		&mockTool{
			name:        "search_leads",
			description: "Search CRM leads",
			params: []tools.Param{
				{Name: "query", Type: "string", Required: true},
				{Name: "limit", Type: "integer", Default: 5},
			},
		},
	})
	if err != nil {
		t.Fatalf("createAnthropicRequest: %v", err)
	}

	var request map[string]interface{}
	if err := json.Unmarshal(body, &request); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if request["system"] != "You are OdooBot." {
		t.Errorf("missing system prompt in request")
	}
	defs, ok := request["tools"].([]interface{})
	if !ok || len(defs) != 1 {
		t.Fatalf("expected 1 tool definition, got %v", request["tools"])
	}
	def := defs[0].(map[string]interface{})
	schema, ok := def["input_schema"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing input_schema: %v", def)
	}
	props, ok := schema["properties"].(map[string]interface{})
	if !ok || len(props) != 2 {
		t.Errorf("schema should carry both parameters, got %v", schema["properties"])
	}
}

func TestProcessBedrockResponseToolUse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "Searching now."},
			{"type": "tool_use", "id": "toolu_1", "name": "search_leads", "input": {"query": "acme"}}
		]
	}`)

	msg, err := processBedrockResponse(body)
	if err != nil {
		t.Fatalf("processBedrockResponse: %v", err)
	}
	if msg.Content != "Searching now." {
		t.Errorf("unexpected content: %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	tc := msg.ToolCalls[0]
	if tc.ToolCallID != "toolu_1" || tc.Name != "search_leads" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if tc.Args["query"] != "acme" {
		t.Errorf("unexpected args: %v", tc.Args)
	}
}
