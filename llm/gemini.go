package llm

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
	"google.golang.org/api/option"
)

// GeminiLLMClient is a client for the Google Gemini API.
type GeminiLLMClient struct {
	model *genai.GenerativeModel
}

// NewGeminiLLMClient creates a new GeminiLLMClient. The API key comes from
// creds under "gemini_api_key" (GEMINI_API_KEY in the environment).
func NewGeminiLLMClient(ctx context.Context, modelName string, creds config.Credentials) (*GeminiLLMClient, error) {
	apiKey, ok := creds.Get("gemini_api_key")
	if !ok || apiKey == "" {
		return nil, errors.Mark(ErrMissingCredential, errors.New("Gemini API key not configured"))
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiLLMClient{
		model: client.GenerativeModel(modelName),
	}, nil
}

// Chat sends a chat request to the Gemini API.
func (g *GeminiLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	history, system := convertMessagesToGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send to Gemini")
	}
	if system != "" {
		g.model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	g.model.Tools = convertToolsToGeminiTools(availableTools)

	// The last message is the new prompt; everything before it is history.
	lastMessage := history[len(history)-1]

	chatSession := g.model.StartChat()
	chatSession.History = history[:len(history)-1]
	resp, err := chatSession.SendMessage(ctx, lastMessage.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}

	return processGeminiResponse(resp)
}

// convertMessagesToGeminiContent converts our internal message format to
// Gemini's. System messages become the system instruction; tool results
// become FunctionResponse parts in a user message.
func convertMessagesToGeminiContent(messages []session.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "assistant":
			parts := []genai.Part{}
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Args})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case "tool":
			if len(msg.ToolCalls) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     msg.ToolCalls[0].Name,
					Response: map[string]any{"result": msg.Content},
				}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	return contents, system
}

// convertToolsToGeminiTools converts our Tool interface to Gemini's
// FunctionDeclaration format.
func convertToolsToGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var funcDecls []*genai.FunctionDeclaration
	for _, t := range ts {
		properties := make(map[string]*genai.Schema)
		var required []string
		for _, p := range t.Params() {
			properties[p.Name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		fd := &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
		}
		if len(properties) > 0 {
			fd.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			}
		}
		funcDecls = append(funcDecls, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	}
	return genai.TypeString
}

// processGeminiResponse converts a Gemini API response into our internal
// session.Message format. Gemini does not assign call IDs, so we mint them.
func processGeminiResponse(resp *genai.GenerateContentResponse) (*session.Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	var responseContent string
	var toolCalls []session.ToolCall

	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			responseContent += string(v)
		case genai.FunctionCall:
			toolCalls = append(toolCalls, session.ToolCall{
				ToolCallID: "call_" + uuid.NewString(),
				Name:       v.Name,
				Args:       v.Args,
			})
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}

	return &session.Message{
		Role:      "assistant",
		Content:   responseContent,
		ToolCalls: toolCalls,
	}, nil
}
