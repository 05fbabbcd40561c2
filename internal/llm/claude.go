package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

type ClaudeClient struct {
	Temperature float32
	MaxTokens   int

	client *anthropic.Client
	model  string
}

func NewClaudeClient(apiKey string, model string, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeClient{
		client:    anthropic.NewClient(apiKey, opts...),
		model:     model,
		MaxTokens: 1000,
	}
}

func (c *ClaudeClient) Chat(ctx context.Context, messages []Message, functions []FunctionSchema) (Reply, error) {
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.MaxTokens,
	}
	req.SetTemperature(c.Temperature)

	var system []string
	lastCall := ""
	for i, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			var content []anthropic.MessageContent
			if m.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(m.Content))
			}
			if m.FunctionCall != nil {
				lastCall = callID(m.FunctionCall.ID, i)
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    lastCall,
						Name:  m.FunctionCall.Name,
						Input: argumentsJSON(m.FunctionCall.Arguments),
					},
				})
			}
			req.Messages = append(req.Messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
		case RoleFunction:
			id := m.CallID
			if id == "" {
				id = lastCall
			}
			req.Messages = append(req.Messages, anthropic.NewToolResultsMessage(id, m.Content, false))
		default:
			req.Messages = append(req.Messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}
	req.System = strings.Join(system, "\n\n")

	for _, f := range functions {
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        f.Name,
			Description: f.Description,
			InputSchema: f.Parameters,
		})
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return Reply{}, &ChatAPIError{Provider: "claude", Op: "messages", Err: err}
	}
	if len(resp.Content) == 0 {
		return Reply{}, &ChatAPIError{Provider: "claude", Op: "messages", Err: errors.New("no response content")}
	}

	var reply Reply
	var text []string
	for _, part := range resp.Content {
		switch part.Type {
		case anthropic.MessagesContentTypeText:
			if part.Text != nil {
				text = append(text, *part.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if part.MessageContentToolUse != nil && reply.FunctionCall == nil {
				reply.FunctionCall = &FunctionCall{
					ID:        part.MessageContentToolUse.ID,
					Name:      part.MessageContentToolUse.Name,
					Arguments: string(part.MessageContentToolUse.Input),
				}
			}
		}
	}
	reply.Content = strings.Join(text, "")
	return reply, nil
}

func callID(id string, position int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("call_%d", position)
}

// argumentsJSON returns raw arguments when they are a JSON object and an
// empty object otherwise, since tool_use input must be an object.
func argumentsJSON(args string) json.RawMessage {
	var obj map[string]any
	if err := json.Unmarshal([]byte(args), &obj); err != nil || obj == nil {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}
