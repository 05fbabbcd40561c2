package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/supplychain/internal/config"
)

type staticTokens struct {
	Values []string
	Calls  int
}

func (s *staticTokens) Fresh(ctx context.Context) (string, error) {
	s.Calls++
	v := s.Values[0]
	if len(s.Values) > 1 {
		s.Values = s.Values[1:]
	}
	return v, nil
}

type capturedRequest struct {
	Path          string
	APIVersion    string
	Authorization string
	Body          map[string]any
}

func chatServer(t *testing.T, reply string, captured *[]capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*captured = append(*captured, capturedRequest{
			Path:          r.URL.Path,
			APIVersion:    r.URL.Query().Get("api-version"),
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
}

const functionCallReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "choices": [{
    "index": 0,
    "finish_reason": "function_call",
    "message": {
      "role": "assistant",
      "content": "",
      "function_call": {"name": "supplier_count", "arguments": "{\"min_supply_amount\": 20000}"}
    }
  }]
}`

var countSchema = FunctionSchema{
	Name:        "supplier_count",
	Description: "Count suppliers",
	Parameters: Schema{
		Type: "object",
		Properties: map[string]Schema{
			"min_supply_amount": {Type: "integer"},
		},
		Required: []string{},
	},
}

func TestOpenAIClient_ChatSendsFunctions(t *testing.T) {
	var captured []capturedRequest
	srv := chatServer(t, functionCallReply, &captured)
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o", "text-embedding-ada-002", srv.URL+"/v1")
	c.Temperature, c.MaxTokens = 0.7, 1000

	reply, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "How many suppliers?"},
	}, []FunctionSchema{countSchema})
	require.NoError(t, err)

	require.NotNil(t, reply.FunctionCall)
	assert.Equal(t, "supplier_count", reply.FunctionCall.Name)
	assert.JSONEq(t, `{"min_supply_amount": 20000}`, reply.FunctionCall.Arguments)

	require.Len(t, captured, 1)
	req := captured[0]
	assert.Equal(t, "/v1/chat/completions", req.Path)
	assert.Equal(t, "Bearer sk-test", req.Authorization)
	assert.Equal(t, "auto", req.Body["function_call"])
	assert.InDelta(t, 0.7, req.Body["temperature"], 0.001)
	assert.EqualValues(t, 1000, req.Body["max_tokens"])
	functions := req.Body["functions"].([]any)
	require.Len(t, functions, 1)
	assert.Equal(t, "supplier_count", functions[0].(map[string]any)["name"])
}

func TestOpenAIClient_FunctionResultMessages(t *testing.T) {
	var captured []capturedRequest
	srv := chatServer(t, `{"choices":[{"message":{"role":"assistant","content":"There are 3."}}]}`, &captured)
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o", "", srv.URL)
	reply, err := c.Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "How many?"},
		{Role: RoleAssistant, FunctionCall: &FunctionCall{Name: "supplier_count", Arguments: "{}"}},
		{Role: RoleFunction, Name: "supplier_count", Content: `[{"supplier_count":3}]`},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "There are 3.", reply.Content)
	assert.Nil(t, reply.FunctionCall)

	msgs := captured[0].Body["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "supplier_count", assistant["function_call"].(map[string]any)["name"])
	fn := msgs[2].(map[string]any)
	assert.Equal(t, "function", fn["role"])
	assert.Equal(t, "supplier_count", fn["name"])
	assert.NotContains(t, captured[0].Body, "functions")
}

func TestAzureClient_UsesBearerTokenAndDeployment(t *testing.T) {
	var captured []capturedRequest
	srv := chatServer(t, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`, &captured)
	defer srv.Close()

	tokens := &staticTokens{Values: []string{"aad-1", "aad-1", "aad-2"}}
	c := NewAzureClient(srv.URL+"/", "2024-08-01-preview", "gpt-4o.mini", "", tokens)

	for i := 0; i < 3; i++ {
		_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
		require.NoError(t, err)
	}

	require.Len(t, captured, 3)
	assert.Equal(t, "/openai/deployments/gpt-4o.mini/chat/completions", captured[0].Path)
	assert.Equal(t, "2024-08-01-preview", captured[0].APIVersion)
	assert.Equal(t, "Bearer aad-1", captured[0].Authorization)
	assert.Equal(t, "Bearer aad-1", captured[1].Authorization)
	assert.Equal(t, "Bearer aad-2", captured[2].Authorization)
	assert.Equal(t, 3, tokens.Calls)
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o", "", srv.URL)
	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)

	var apiErr *ChatAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "openai", apiErr.Provider)
}

func TestOpenAIClient_Embed(t *testing.T) {
	var captured []capturedRequest
	srv := chatServer(t, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`, &captured)
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "gpt-4o", "text-embedding-ada-002", srv.URL)
	vec, err := c.Embed(context.Background(), "steel coils")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
	assert.Equal(t, "text-embedding-ada-002", captured[0].Body["model"])
}

func TestNewClient_Providers(t *testing.T) {
	ctx := context.Background()

	chat, emb, err := NewClient(ctx, config.LLMConfig{Provider: "azure", Endpoint: "https://x.openai.azure.com"}, &staticTokens{Values: []string{"t"}})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, chat)
	assert.NotNil(t, emb)

	_, _, err = NewClient(ctx, config.LLMConfig{Provider: "azure"}, nil)
	assert.Error(t, err)

	chat, emb, err = NewClient(ctx, config.LLMConfig{Provider: "claude", APIKey: "k", Model: "claude-3-5-sonnet"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, chat)
	assert.Nil(t, emb)

	_, _, err = NewClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llama3"}, nil)
	require.NoError(t, err)

	_, _, err = NewClient(ctx, config.LLMConfig{Provider: "bogus"}, nil)
	assert.ErrorContains(t, err, "unsupported llm provider")
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(Schema{
		Type: "object",
		Properties: map[string]Schema{
			"grouping_key": {Type: "string", Enum: []string{"supply_capacity", "location"}},
			"k":            {Type: "integer"},
		},
	})
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeInteger, s.Properties["k"].Type)
	assert.Equal(t, []string{"supply_capacity", "location"}, s.Properties["grouping_key"].Enum)
}

func TestFunctionResponse(t *testing.T) {
	assert.Equal(t, map[string]any{"content": []any{map[string]any{"n": float64(1)}}}, functionResponse(`[{"n":1}]`))
	assert.Equal(t, map[string]any{"content": "Function x not found."}, functionResponse("Function x not found."))
}

func TestArgumentsJSON(t *testing.T) {
	assert.JSONEq(t, `{"k":3}`, string(argumentsJSON(`{"k":3}`)))
	assert.JSONEq(t, `{}`, string(argumentsJSON(`not json`)))
	assert.JSONEq(t, `{}`, string(argumentsJSON(`[1]`)))
}

func TestGeminiHistory(t *testing.T) {
	system, history, err := geminiHistory([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "How many suppliers?"},
		{Role: RoleAssistant, FunctionCall: &FunctionCall{Name: "supplier_count", Arguments: `{}`}},
		{Role: RoleFunction, Name: "supplier_count", Content: `[{"supplier_count":3}]`},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"be brief"}, system)
	require.Len(t, history, 3)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "user", history[2].Role)

	_, _, err = geminiHistory([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	var apiErr *ChatAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "gemini", apiErr.Provider)

	_, _, err = geminiHistory(nil)
	assert.True(t, errors.As(err, &apiErr))
}
