package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiEmbeddingModel = "text-embedding-004"

type GeminiClient struct {
	Temperature float32
	MaxTokens   int

	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGeminiClient(ctx context.Context, apiKey string, model string, embeddingModel string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if embeddingModel == "" {
		embeddingModel = defaultGeminiEmbeddingModel
	}
	return &GeminiClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

func (c *GeminiClient) Chat(ctx context.Context, messages []Message, functions []FunctionSchema) (Reply, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.Temperature)
	if c.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.MaxTokens))
	}
	if len(functions) > 0 {
		tool := &genai.Tool{}
		for _, f := range functions {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  toGeminiSchema(f.Parameters),
			})
		}
		model.Tools = []*genai.Tool{tool}
	}

	system, history, err := geminiHistory(messages)
	if err != nil {
		return Reply{}, err
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	cs := model.StartChat()
	cs.History = history[:len(history)-1]
	resp, err := cs.SendMessage(ctx, history[len(history)-1].Parts...)
	if err != nil {
		return Reply{}, &ChatAPIError{Provider: "gemini", Op: "generate content", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Reply{}, &ChatAPIError{Provider: "gemini", Op: "generate content", Err: errors.New("no response candidates or content")}
	}

	var reply Reply
	var text []string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text = append(text, string(p))
		case genai.FunctionCall:
			if reply.FunctionCall != nil {
				continue
			}
			args, err := json.Marshal(p.Args)
			if err != nil || p.Args == nil {
				args = []byte("{}")
			}
			reply.FunctionCall = &FunctionCall{Name: p.Name, Arguments: string(args)}
		}
	}
	reply.Content = strings.Join(text, "")
	return reply, nil
}

// geminiHistory splits messages into system instructions and chat history.
// The last history entry is the one sent, so it must come from the user side.
func geminiHistory(messages []Message) ([]string, []*genai.Content, error) {
	var system []string
	var history []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			content := &genai.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.Text(m.Content))
			}
			if m.FunctionCall != nil {
				var args map[string]any
				_ = json.Unmarshal([]byte(m.FunctionCall.Arguments), &args)
				content.Parts = append(content.Parts, genai.FunctionCall{Name: m.FunctionCall.Name, Args: args})
			}
			history = append(history, content)
		case RoleFunction:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{
				genai.FunctionResponse{Name: m.Name, Response: functionResponse(m.Content)},
			}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return nil, nil, &ChatAPIError{Provider: "gemini", Op: "generate content", Err: errors.New("conversation must end with a user or function message")}
	}
	return system, history, nil
}

// functionResponse wraps a tool result in the object form Gemini requires.
func functionResponse(content string) map[string]any {
	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		decoded = content
	}
	return map[string]any{"content": decoded}
}

func toGeminiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        geminiType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.client.EmbeddingModel(c.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &ChatAPIError{Provider: "gemini", Op: "embedding", Err: err}
	}
	if res.Embedding == nil {
		return nil, &ChatAPIError{Provider: "gemini", Op: "embedding", Err: fmt.Errorf("no embedding values")}
	}
	return res.Embedding.Values, nil
}
