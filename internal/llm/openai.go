package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible endpoint. With a TokenSource it
// authenticates against Azure OpenAI using Azure AD bearer tokens and rebuilds
// the underlying client whenever the token changes.
type OpenAIClient struct {
	Temperature float32
	MaxTokens   int

	model          string
	embeddingModel string
	tokens         TokenSource
	configFor      func(token string) openai.ClientConfig

	mu          sync.Mutex
	client      *openai.Client
	clientToken string
}

func NewOpenAIClient(apiKey, model, embeddingModel, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		model:          model,
		embeddingModel: embeddingModel,
		client:         openai.NewClientWithConfig(config),
	}
}

// NewAzureClient builds a client for an Azure OpenAI deployment. Model names
// are passed through unchanged as deployment names.
func NewAzureClient(endpoint, apiVersion, model, embeddingModel string, tokens TokenSource) *OpenAIClient {
	return &OpenAIClient{
		model:          model,
		embeddingModel: embeddingModel,
		tokens:         tokens,
		configFor: func(token string) openai.ClientConfig {
			return azureConfig(token, endpoint, apiVersion, openai.APITypeAzureAD)
		},
	}
}

// NewAzureKeyClient builds an Azure OpenAI client authenticated with a static api-key.
func NewAzureKeyClient(apiKey, endpoint, apiVersion, model, embeddingModel string) *OpenAIClient {
	return &OpenAIClient{
		model:          model,
		embeddingModel: embeddingModel,
		client:         openai.NewClientWithConfig(azureConfig(apiKey, endpoint, apiVersion, openai.APITypeAzure)),
	}
}

func azureConfig(secret, endpoint, apiVersion string, apiType openai.APIType) openai.ClientConfig {
	config := openai.DefaultAzureConfig(secret, endpoint)
	config.APIType = apiType
	if apiVersion != "" {
		config.APIVersion = apiVersion
	}
	config.AzureModelMapperFunc = func(model string) string { return model }
	return config
}

func (c *OpenAIClient) current(ctx context.Context) (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokens == nil {
		if c.client == nil {
			return nil, errors.New("openai client not configured")
		}
		return c.client, nil
	}

	token, err := c.tokens.Fresh(ctx)
	if err != nil {
		return nil, err
	}
	if c.client == nil || token != c.clientToken {
		c.client = openai.NewClientWithConfig(c.configFor(token))
		c.clientToken = token
	}
	return c.client, nil
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, functions []FunctionSchema) (Reply, error) {
	client, err := c.current(ctx)
	if err != nil {
		return Reply{}, err
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	if len(functions) > 0 {
		for _, f := range functions {
			req.Functions = append(req.Functions, openai.FunctionDefinition{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  f.Parameters,
			})
		}
		req.FunctionCall = "auto"
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, &ChatAPIError{Provider: "openai", Op: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Reply{}, &ChatAPIError{Provider: "openai", Op: "chat completion", Err: errors.New("no response choices")}
	}

	msg := resp.Choices[0].Message
	reply := Reply{Content: msg.Content}
	switch {
	case msg.FunctionCall != nil && msg.FunctionCall.Name != "":
		reply.FunctionCall = &FunctionCall{Name: msg.FunctionCall.Name, Arguments: msg.FunctionCall.Arguments}
	case len(msg.ToolCalls) > 0:
		// Some deployments answer legacy function requests with tool_calls.
		tc := msg.ToolCalls[0]
		reply.FunctionCall = &FunctionCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
	}
	return reply, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		}
		if m.FunctionCall != nil {
			msg.FunctionCall = &openai.FunctionCall{Name: m.FunctionCall.Name, Arguments: m.FunctionCall.Arguments}
		}
		out = append(out, msg)
	}
	return out
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, &ChatAPIError{Provider: "openai", Op: "embedding", Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &ChatAPIError{Provider: "openai", Op: "embedding", Err: fmt.Errorf("no embedding data for model %q", c.embeddingModel)}
	}
	return resp.Data[0].Embedding, nil
}
