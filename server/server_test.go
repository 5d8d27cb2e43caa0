package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmanhococ/V2-Odoo-Agent/odoo"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

func newTestServer(t *testing.T, confirmer tools.Confirmer) (*Server, *odoo.MemoryStore) {
	t.Helper()
	store := odoo.NewMemoryStore()
	store.SeedLeads(odoo.Lead{ID: 1, Name: "Acme Corp", Email: "sales@acme.test", Stage: "New"})
	store.SetSummary(odoo.Summary{MonthlyOrders: 3, MonthlyRevenue: 900})

	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterCRM(registry, store))
	registry.Freeze()

	gate := tools.NewGate(registry, confirmer, nil)
	return New(registry, gate, "test", nil), store
}

func call(t *testing.T, s *Server, raw string) map[string]any {
	t.Helper()
	data := s.HandleMessage(context.Background(), []byte(raw))
	require.NotNil(t, data)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestInitialize(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	result := resp["result"].(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])

	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "odoo_ai_agent", info["name"])
}

func TestToolsListCarriesSchemasAndAnnotations(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	result := resp["result"].(map[string]any)
	defs := result["tools"].([]any)
	require.Len(t, defs, 5)

	byName := map[string]map[string]any{}
	for _, d := range defs {
		def := d.(map[string]any)
		byName[def["name"].(string)] = def
	}

	create := byName["create_lead"]
	require.NotNil(t, create)
	annotations := create["annotations"].(map[string]any)
	assert.Equal(t, false, annotations["readOnlyHint"])
	assert.Equal(t, true, annotations["destructiveHint"])

	search := byName["search_leads"]
	require.NotNil(t, search)
	annotations = search["annotations"].(map[string]any)
	assert.Equal(t, true, annotations["readOnlyHint"])

	schema := search["inputSchema"].(map[string]any)
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
}

func TestToolsCall(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_leads","arguments":{"query":"acme"}}}`)
	result := resp["result"].(map[string]any)
	content := result["content"].([]any)
	require.Len(t, content, 1)

	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])
	assert.Contains(t, block["text"], "Acme Corp (ID: 1)")
	assert.Equal(t, false, result["isError"])
}

func TestToolsCallHandlerFailureSetsIsError(t *testing.T) {
	s, store := newTestServer(t, tools.AutoApprove{})
	store.FailWith(stderrors.New("connection refused"))

	resp := call(t, s, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"get_sales_summary"}}`)
	result := resp["result"].(map[string]any)
	content := result["content"].([]any)
	block := content[0].(map[string]any)
	assert.Contains(t, block["text"], "Error executing get_sales_summary")
	assert.Equal(t, true, result["isError"])
}

func TestToolsCallDenied(t *testing.T) {
	s, store := newTestServer(t, tools.AutoDeny{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"create_lead","arguments":{"name":"Hooli"}}}`)
	result := resp["result"].(map[string]any)
	content := result["content"].([]any)
	block := content[0].(map[string]any)
	assert.Equal(t, "Lead creation cancelled by user.", block["text"])
	assert.Equal(t, false, result["isError"], "denial is not a tool failure")
	assert.Equal(t, 0, store.MutationCount())
}

func TestToolsCallErrors(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"no_such_tool"}}`)
	rpcErr := resp["error"].(map[string]any)
	assert.Equal(t, float64(codeInvalidParams), rpcErr["code"])

	resp = call(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"search_leads","arguments":{"bogus":1}}}`)
	rpcErr = resp["error"].(map[string]any)
	assert.Equal(t, float64(codeInvalidParams), rpcErr["code"])

	resp = call(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":""}}`)
	rpcErr = resp["error"].(map[string]any)
	assert.Equal(t, float64(codeInvalidParams), rpcErr["code"])
}

func TestResources(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":8,"method":"resources/list"}`)
	result := resp["result"].(map[string]any)
	require.Len(t, result["resources"].([]any), 2)

	resp = call(t, s, `{"jsonrpc":"2.0","id":9,"method":"resources/read","params":{"uri":"odoo://summary/sales"}}`)
	result = resp["result"].(map[string]any)
	contents := result["contents"].([]any)
	require.Len(t, contents, 1)
	body := contents[0].(map[string]any)
	assert.Contains(t, body["text"], "- Total Orders: 3")

	resp = call(t, s, `{"jsonrpc":"2.0","id":10,"method":"resources/read","params":{"uri":"odoo://nope"}}`)
	rpcErr := resp["error"].(map[string]any)
	assert.Equal(t, float64(codeInvalidParams), rpcErr["code"])
}

func TestPrompts(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{"jsonrpc":"2.0","id":11,"method":"prompts/list"}`)
	result := resp["result"].(map[string]any)
	require.Len(t, result["prompts"].([]any), 1)

	resp = call(t, s, `{"jsonrpc":"2.0","id":12,"method":"prompts/get","params":{"name":"system"}}`)
	result = resp["result"].(map[string]any)
	messages := result["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].(map[string]any)
	assert.Contains(t, content["text"], "OdooBot")

	resp = call(t, s, `{"jsonrpc":"2.0","id":13,"method":"prompts/get","params":{"name":"other"}}`)
	rpcErr := resp["error"].(map[string]any)
	assert.Equal(t, float64(codeInvalidParams), rpcErr["code"])
}

func TestProtocolErrors(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})

	resp := call(t, s, `{not json`)
	rpcErr := resp["error"].(map[string]any)
	assert.Equal(t, float64(codeParseError), rpcErr["code"])

	resp = call(t, s, `{"jsonrpc":"1.0","id":1,"method":"ping"}`)
	rpcErr = resp["error"].(map[string]any)
	assert.Equal(t, float64(codeInvalidRequest), rpcErr["code"])

	resp = call(t, s, `{"jsonrpc":"2.0","id":1,"method":"bogus/method"}`)
	rpcErr = resp["error"].(map[string]any)
	assert.Equal(t, float64(codeMethodNotFound), rpcErr["code"])
}

func TestNotificationsGetNoResponse(t *testing.T) {
	s, _ := newTestServer(t, tools.AutoApprove{})
	data := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, data)
}
