package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmanhococ/V2-Odoo-Agent/errors"
	"github.com/tmanhococ/V2-Odoo-Agent/session"
	"github.com/tmanhococ/V2-Odoo-Agent/tools"
)

// BedrockLLMClient is a client for Anthropic models on AWS Bedrock.
type BedrockLLMClient struct {
	client  *bedrockruntime.Client
	modelID string
	region  string
}

// NewBedrockLLMClient creates a new BedrockLLMClient. AWS credentials must
// be configured in the environment or shared config.
func NewBedrockLLMClient(ctx context.Context, modelID string) (*BedrockLLMClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Mark(ErrMissingCredential, errors.Wrapf(err, "failed to load AWS config"))
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, errors.Mark(ErrMissingCredential, errors.Wrapf(err, "no AWS credentials available"))
	}

	client := bedrockruntime.NewFromConfig(cfg)

	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	return &BedrockLLMClient{
		client:  client,
		modelID: modelID,
		region:  region,
	}, nil
}

// Chat sends a chat request to the Anthropic model via AWS Bedrock.
func (b *BedrockLLMClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropicFormat(messages)

	requestBody, err := createAnthropicRequest(anthropicMessages, systemPrompt, availableTools)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Anthropic request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}

	return processBedrockResponse(resp.Body)
}

// convertMessagesToAnthropicFormat converts our internal message format to
// the raw Anthropic request format used by Bedrock.
func convertMessagesToAnthropicFormat(messages []session.Message) ([]map[string]interface{}, string) {
	var anthropicMessages []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "user":
			anthropicMessages = append(anthropicMessages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": msg.Content,
					},
				},
			})
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var toolUses []map[string]interface{}
				for _, tc := range msg.ToolCalls {
					toolUses = append(toolUses, map[string]interface{}{
						"type":  "tool_use",
						"id":    tc.ToolCallID,
						"name":  tc.Name,
						"input": tc.Args,
					})
				}

				anthropicMessages = append(anthropicMessages, map[string]interface{}{
					"role":    "assistant",
					"content": toolUses,
				})
			} else if msg.Content != "" {
				anthropicMessages = append(anthropicMessages, map[string]interface{}{
					"role": "assistant",
					"content": []map[string]interface{}{
						{
							"type": "text",
							"text": msg.Content,
						},
					},
				})
			}
		case "tool":
			if len(msg.ToolCalls) > 0 {
				anthropicMessages = append(anthropicMessages, map[string]interface{}{
					"role": "user",
					"content": []map[string]interface{}{
						{
							"type":        "tool_result",
							"tool_use_id": msg.ToolCalls[0].ToolCallID,
							"content":     msg.Content,
						},
					},
				})
			}
		}
	}

	return anthropicMessages, systemPrompt
}

// createAnthropicRequest creates the request body for Anthropic models on
// Bedrock.
func createAnthropicRequest(messages []map[string]interface{}, systemPrompt string, availableTools []tools.Tool) ([]byte, error) {
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        4096,
		"messages":          messages,
	}

	if systemPrompt != "" {
		request["system"] = systemPrompt
	}

	if len(availableTools) > 0 {
		var defs []map[string]interface{}
		for _, t := range availableTools {
			defs = append(defs, map[string]interface{}{
				"name":         t.Name(),
				"description":  t.Description(),
				"input_schema": tools.InputSchema(t),
			})
		}
		request["tools"] = defs
	}

	return json.Marshal(request)
}

// processBedrockResponse converts a Bedrock API response into our internal
// session.Message format.
func processBedrockResponse(body []byte) (*session.Message, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}

	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("Bedrock API error: %v", errMsg)
	}

	content, ok := response["content"]
	if !ok {
		return &session.Message{Role: "assistant", Content: ""}, nil
	}

	contentArray, ok := content.([]interface{})
	if !ok {
		return nil, errors.New("unexpected content format in Bedrock response")
	}

	var responseContent string
	var toolCalls []session.ToolCall
	toolCallIDCounter := 0

	for _, item := range contentArray {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		itemType, ok := itemMap["type"].(string)
		if !ok {
			continue
		}

		switch itemType {
		case "text":
			if text, ok := itemMap["text"].(string); ok {
				responseContent += text
			}
		case "tool_use":
			name, ok := itemMap["name"].(string)
			if !ok {
				continue
			}
			input, ok := itemMap["input"].(map[string]interface{})
			if !ok {
				continue
			}
			id := fmt.Sprintf("call_%d_%s", toolCallIDCounter, name)
			if toolID, ok := itemMap["id"].(string); ok {
				id = toolID
			}

			toolCalls = append(toolCalls, session.ToolCall{
				ToolCallID: id,
				Name:       name,
				Args:       input,
			})
			toolCallIDCounter++
		}
	}

	return &session.Message{
		Role:      "assistant",
		Content:   responseContent,
		ToolCalls: toolCalls,
	}, nil
}
