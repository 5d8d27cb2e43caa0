package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/llm"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

// maxToolRounds bounds the model/tool loop within a single turn.
const maxToolRounds = 8

// MCPRuntime is the full agent runtime: a model client plus a connection
// to the protocol server, whose tools are offered to the model each turn.
type MCPRuntime struct {
	cmd         *exec.Cmd
	conn        *mcpsdk.ClientSession
	client      llm.LLMClient
	tools       []tools.Tool
	logger      *slog.Logger
	toolTimeout time.Duration
}

// NewMCPRuntime builds the model client, spawns the protocol server
// subprocess over stdio and discovers its tools. Any failure here makes
// the selector fall through to the next provider.
func NewMCPRuntime(ctx context.Context, cfg *config.Config, creds config.Credentials, logger *slog.Logger) (*MCPRuntime, error) {
	client, err := llm.New(ctx, cfg.LLMClient, cfg.Model, creds)
	if err != nil {
		return nil, err
	}

	if cfg.MCPServer.Command == "" {
		return nil, errors.New("no MCP server command configured")
	}

	cmd := exec.Command(cfg.MCPServer.Command, cfg.MCPServer.Args...)
	cmd.Stderr = os.Stderr
	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "odoo-agent", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server")
	}

	ts, err := cfg.GetToolset("")
	if err != nil {
		conn.Close()
		cmd.Process.Kill()
		return nil, err
	}

	r := &MCPRuntime{
		cmd:         cmd,
		conn:        conn,
		client:      client,
		logger:      logger,
		toolTimeout: cfg.ToolCallTimeout,
	}

	listParams := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, listParams)
		if err != nil {
			conn.Close()
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server")
		}

		for _, t := range list.Tools {
			ok, err := tools.Matches(ts.Tools, t.Name)
			if err != nil {
				conn.Close()
				cmd.Process.Kill()
				return nil, errors.Wrapf(err, "invalid toolset %q", ts.Name)
			}
			if !ok {
				continue
			}
			r.tools = append(r.tools, &remoteTool{
				name:        t.Name,
				description: t.Description,
				params:      paramsFromSchema(t.InputSchema),
				mutating:    t.Annotations != nil && !t.Annotations.ReadOnlyHint,
				conn:        conn,
			})
		}

		if list.NextCursor == "" {
			break
		}
		listParams.Cursor = list.NextCursor
	}

	logger.Info("connected to MCP server", "tools", len(r.tools))
	return r, nil
}

// Respond runs one model turn, executing any requested tool calls through
// the server until the model settles on a text answer.
func (r *MCPRuntime) Respond(ctx context.Context, history []session.Message, prompt string) (string, error) {
	msgs := make([]session.Message, 0, len(history)+2)
	msgs = append(msgs, session.Message{Role: "system", Content: tools.SystemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, session.Message{Role: "user", Content: prompt})

	for round := 0; round < maxToolRounds; round++ {
		resp, err := r.client.Chat(ctx, msgs, r.tools)
		if err != nil {
			return "", errors.Wrapf(err, "model call failed")
		}
		msgs = append(msgs, *resp)

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		for _, tc := range resp.ToolCalls {
			out := r.callTool(ctx, tc)
			msgs = append(msgs, session.Message{
				Role:      "tool",
				Content:   out,
				ToolCalls: []session.ToolCall{tc},
			})
		}
	}
	return "", errors.New("model did not settle on an answer after %d tool rounds", maxToolRounds)
}

// callTool executes one server tool. Failures become text so the model can
// report them instead of the turn dying.
func (r *MCPRuntime) callTool(ctx context.Context, tc session.ToolCall) string {
	tctx, cancel := context.WithTimeout(ctx, r.toolTimeout)
	defer cancel()

	r.logger.Info("calling tool", "tool", tc.Name)
	result, err := r.conn.CallTool(tctx, &mcpsdk.CallToolParams{
		Name:      tc.Name,
		Arguments: tc.Args,
	})
	if err != nil {
		r.logger.Warn("tool call failed", "tool", tc.Name, "error", err)
		return fmt.Sprintf("Error executing %s: %v", tc.Name, err)
	}

	out := ""
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out
}

// Close tears down the server connection and subprocess.
func (r *MCPRuntime) Close() error {
	if r.conn != nil {
		r.conn.Close()
	}
	if r.cmd != nil && r.cmd.Process != nil {
		return r.cmd.Process.Kill()
	}
	return nil
}

// remoteTool is a server-side tool surfaced to the model. Execution goes
// back through the server connection; confirmation for mutating tools
// happens server-side, so Mutating here is advisory only.
type remoteTool struct {
	name        string
	description string
	params      []tools.Param
	mutating    bool
	conn        *mcpsdk.ClientSession
}

func (t *remoteTool) Name() string          { return t.name }
func (t *remoteTool) Description() string   { return t.description }
func (t *remoteTool) Params() []tools.Param { return t.params }
func (t *remoteTool) Mutating() bool        { return t.mutating }

func (t *remoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s'", t.name)
	}
	out := ""
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}

// paramsFromSchema flattens the advertised input schema back into the
// parameter list the model clients render.
func paramsFromSchema(s *jsonschema.Schema) []tools.Param {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tools.Param, 0, len(names))
	for _, name := range names {
		prop := s.Properties[name]
		p := tools.Param{Name: name, Required: required[name]}
		if prop != nil {
			p.Type = prop.Type
			p.Description = prop.Description
		}
		params = append(params, p)
	}
	return params
}
