package llm

import (
	"context"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// FunctionCall is a structured invocation the model asks for instead of text.
// ID is set by providers that correlate calls with results.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	// CallID ties a function result to the call that produced it.
	CallID string `json:"call_id,omitempty"`
}

// Reply is what one model turn produced: text, a function call, or both.
type Reply struct {
	Content      string
	FunctionCall *FunctionCall
}

// Schema is the JSON-schema subset used to describe function parameters.
type Schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Required    []string          `json:"required"`
}

type FunctionSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

type ChatClient interface {
	Chat(ctx context.Context, messages []Message, functions []FunctionSchema) (Reply, error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenSource hands out a bearer token for the model endpoint.
type TokenSource interface {
	Fresh(ctx context.Context) (string, error)
}

// ChatAPIError wraps a failed call to a model endpoint.
type ChatAPIError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ChatAPIError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ChatAPIError) Unwrap() error {
	return e.Err
}
