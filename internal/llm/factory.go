package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/supplychain/internal/config"
)

// NewClient builds the chat and embedding clients for the configured provider.
// tokens is only used by the azure provider when no api key is set. The
// embedder is nil for providers without an embeddings API.
func NewClient(ctx context.Context, cfg config.LLMConfig, tokens TokenSource) (ChatClient, EmbedderClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "", "azure":
		if cfg.Endpoint == "" {
			return nil, nil, fmt.Errorf("azure provider requires llm.endpoint")
		}
		var c *OpenAIClient
		if cfg.APIKey != "" {
			c = NewAzureKeyClient(cfg.APIKey, cfg.Endpoint, cfg.APIVersion, cfg.Model, cfg.EmbeddingModel)
		} else {
			if tokens == nil {
				return nil, nil, fmt.Errorf("azure provider requires a token source or api key")
			}
			c = NewAzureClient(cfg.Endpoint, cfg.APIVersion, cfg.Model, cfg.EmbeddingModel, tokens)
		}
		c.Temperature, c.MaxTokens = cfg.Temperature, cfg.MaxTokens
		return c, c, nil

	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.Endpoint)
		c.Temperature, c.MaxTokens = cfg.Temperature, cfg.MaxTokens
		return c, c, nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		c.Temperature, c.MaxTokens = cfg.Temperature, cfg.MaxTokens
		return c, c, nil

	case "claude":
		c := NewClaudeClient(cfg.APIKey, cfg.Model, cfg.Endpoint)
		c.Temperature = cfg.Temperature
		if cfg.MaxTokens > 0 {
			c.MaxTokens = cfg.MaxTokens
		}
		return c, nil, nil

	case "ollama":
		// Ollama serves an OpenAI-compatible API under /v1.
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		c := NewOpenAIClient(apiKey, cfg.Model, cfg.EmbeddingModel, baseURL)
		c.Temperature, c.MaxTokens = cfg.Temperature, cfg.MaxTokens
		return c, c, nil

	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
