// Package server exposes the tool registry over MCP-style JSON-RPC, on
// stdio for subprocess use and on HTTP for remote callers.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

const (
	// ServiceName is advertised in initialize results and health checks.
	ServiceName = "odoo_ai_agent"

	protocolVersion = "2024-11-05"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Server dispatches JSON-RPC requests against the registry, with every
// tool call passing through the confirmation gate.
type Server struct {
	registry  *tools.Registry
	gate      *tools.Gate
	version   string
	sessionID string
	logger    *slog.Logger
}

// New builds a server. The registry should be frozen before serving.
func New(registry *tools.Registry, gate *tools.Gate, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		registry:  registry,
		gate:      gate,
		version:   version,
		sessionID: uuid.NewString(),
		logger:    logger,
	}
}

// HandleMessage processes one raw JSON-RPC message and returns the
// serialized response, or nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, data []byte) []byte {
	var req jsonrpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return marshalResponse(errorResponse(nil, codeParseError, "parse error"))
	}
	resp := s.handle(ctx, &req)
	if resp == nil {
		return nil
	}
	return marshalResponse(resp)
}

func marshalResponse(resp *jsonrpcResponse) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Fall back to a canned internal error; the response structures
		// marshal unless a tool smuggled an unmarshalable value in.
		data, _ = json.Marshal(errorResponse(resp.ID, codeInternalError, "internal error"))
	}
	return data
}

func (s *Server) handle(ctx context.Context, req *jsonrpcRequest) *jsonrpcResponse {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "invalid request")
	}

	// Notifications get no response.
	if req.ID == nil {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	s.logger.Debug("request", "method", req.Method)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return s.handleResourcesList(req)
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	case "prompts/list":
		return s.handlePromptsList(req)
	case "prompts/get":
		return s.handlePromptsGet(req)
	}
	return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
}

func (s *Server) handleInitialize(req *jsonrpcRequest) *jsonrpcResponse {
	return resultResponse(req.ID, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServiceName,
			"version": s.version,
		},
	})
}

func (s *Server) handleToolsList(req *jsonrpcRequest) *jsonrpcResponse {
	var defs []map[string]any
	for _, t := range s.registry.Tools() {
		defs = append(defs, map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"inputSchema": tools.InputSchema(t),
			"annotations": map[string]any{
				"readOnlyHint":    !t.Mutating(),
				"destructiveHint": t.Mutating(),
			},
		})
	}
	return resultResponse(req.ID, map[string]any{"tools": defs})
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, req *jsonrpcRequest) *jsonrpcResponse {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params")
	}
	if params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "tool name is required")
	}

	out, err := s.gate.Invoke(ctx, tools.Invocation{
		Tool:      params.Name,
		Args:      params.Arguments,
		RequestID: string(req.ID),
	})
	if err != nil {
		switch {
		case errors.Is(err, tools.ErrUnknownTool), errors.Is(err, tools.ErrInvalidArguments):
			return errorResponse(req.ID, codeInvalidParams, err.Error())
		default:
			s.logger.Error("tool call failed", "tool", params.Name, "error", err)
			return errorResponse(req.ID, codeInternalError, "internal error")
		}
	}

	return resultResponse(req.ID, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": out.Text},
		},
		"isError": out.Failed,
	})
}

func (s *Server) handleResourcesList(req *jsonrpcRequest) *jsonrpcResponse {
	var defs []map[string]any
	for _, res := range s.registry.Resources() {
		defs = append(defs, map[string]any{
			"uri":         res.URI(),
			"name":        res.Name(),
			"description": res.Description(),
			"mimeType":    "text/plain",
		})
	}
	return resultResponse(req.ID, map[string]any{"resources": defs})
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(ctx context.Context, req *jsonrpcRequest) *jsonrpcResponse {
	var params resourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid resources/read params")
	}

	res, err := s.registry.Resource(params.URI)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error())
	}
	text, err := res.Read(ctx)
	if err != nil {
		s.logger.Error("resource read failed", "uri", params.URI, "error", err)
		return errorResponse(req.ID, codeInternalError, "internal error")
	}

	return resultResponse(req.ID, map[string]any{
		"contents": []map[string]any{
			{"uri": res.URI(), "mimeType": "text/plain", "text": text},
		},
	})
}

func (s *Server) handlePromptsList(req *jsonrpcRequest) *jsonrpcResponse {
	return resultResponse(req.ID, map[string]any{
		"prompts": []map[string]any{
			{"name": "system", "description": "Instructions the agent runtime hands to the model."},
		},
	})
}

type promptsGetParams struct {
	Name string `json:"name"`
}

func (s *Server) handlePromptsGet(req *jsonrpcRequest) *jsonrpcResponse {
	var params promptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid prompts/get params")
	}
	if params.Name != "system" {
		return errorResponse(req.ID, codeInvalidParams, "unknown prompt: "+params.Name)
	}

	return resultResponse(req.ID, map[string]any{
		"description": "Instructions the agent runtime hands to the model.",
		"messages": []map[string]any{
			{
				"role": "user",
				"content": map[string]any{
					"type": "text",
					"text": tools.SystemPrompt,
				},
			},
		},
	})
}

func resultResponse(id json.RawMessage, result any) *jsonrpcResponse {
	return &jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *jsonrpcResponse {
	return &jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: message},
	}
}
