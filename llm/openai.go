package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/tmanhococ/V2-Odoo-Agent/config"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

// OpenAILLMClient is a client for the OpenAI Chat Completion API.
type OpenAILLMClient struct {
	client *openai.Client
	model  string
}

// NewOpenAILLMClient creates a new OpenAILLMClient. The API key comes from
// creds under "openai_api_key" (OPENAI_API_KEY in the environment).
// OPENAI_BASE_URL selects a custom API endpoint.
func NewOpenAILLMClient(ctx context.Context, modelName string, creds config.Credentials) (*OpenAILLMClient, error) {
	apiKey, ok := creds.Get("openai_api_key")
	if !ok || apiKey == "" {
		return nil, errors.Mark(ErrMissingCredential, errors.New("OpenAI API key not configured"))
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	return &OpenAILLMClient{client: &c, model: modelName}, nil
}

// Chat sends a chat request to OpenAI and converts the response into our
// internal session.Message format.
func (o *OpenAILLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	chatMessages := convertMessagesToOpenaiContent(messages)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: chatMessages,
		Tools:    convertToolsToOpenAITools(availableTools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}

	return processOpenaiResponse(resp)
}

// processOpenaiResponse converts an OpenAI API response into our internal
// session.Message format.
func processOpenaiResponse(resp *openai.ChatCompletion) (*session.Message, error) {
	if len(resp.Choices) == 0 {
		return &session.Message{Role: "assistant", Content: ""}, nil
	}

	choice := resp.Choices[0].Message

	if len(choice.ToolCalls) > 0 {
		var sessToolCalls []session.ToolCall
		for _, tc := range choice.ToolCalls {
			var toolArgs map[string]interface{}
			// Arguments arrive as a JSON string.
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &toolArgs); err != nil {
				return nil, errors.Wrapf(err, "failed to unmarshal function call arguments from OpenAI")
			}
			sessToolCalls = append(sessToolCalls, session.ToolCall{
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Args:       toolArgs,
			})
		}
		return &session.Message{
			Role:      "assistant",
			Content:   choice.Content,
			ToolCalls: sessToolCalls,
		}, nil
	}

	return &session.Message{Role: "assistant", Content: choice.Content}, nil
}

// convertMessagesToOpenaiContent converts our internal message format to
// OpenAI's.
func convertMessagesToOpenaiContent(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case "assistant":
			assistantMessage := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				var toolCalls []openai.ChatCompletionMessageToolCallUnion
				for _, tc := range msg.ToolCalls {
					argsBytes, err := json.Marshal(tc.Args)
					if err != nil {
						continue
					}
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnion{
						ID:   tc.ToolCallID,
						Type: "function",
						Function: openai.ChatCompletionMessageFunctionToolCallFunction{
							Name:      tc.Name,
							Arguments: string(argsBytes),
						},
					})
				}
				assistantMessage.ToolCalls = toolCalls
			}
			chatMessages = append(chatMessages, assistantMessage.ToParam())
		case "tool":
			// Needs exactly one ToolCall to identify the call being answered.
			if len(msg.ToolCalls) != 1 {
				continue
			}
			chatMessages = append(chatMessages, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ToolCallID))
		case "user":
			fallthrough
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages
}

// convertToolsToOpenAITools converts our Tool interface to the OpenAI Tool
// format.
func convertToolsToOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var openAITools []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		schema := tools.InputSchema(t)
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": schema["properties"],
		}
		if required, ok := schema["required"]; ok {
			params["required"] = required
		}

		toolParam := openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  params,
		})
		openAITools = append(openAITools, toolParam)
	}
	return openAITools
}
