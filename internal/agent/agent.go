package agent

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agenthands/supplychain/internal/config"
	"github.com/agenthands/supplychain/internal/driver"
	"github.com/agenthands/supplychain/internal/llm"
	"github.com/agenthands/supplychain/internal/logger"
	"github.com/agenthands/supplychain/internal/tools"
)

// FailureMessage is the answer when the model never produced any text.
const FailureMessage = "Failed to generate a response."

type State int

const (
	AwaitingModel State = iota
	DispatchingTool
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting_model"
	case DispatchingTool:
		return "dispatching_tool"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Dispatcher runs the tools the model may call.
type Dispatcher interface {
	Schemas() []llm.FunctionSchema
	Call(ctx context.Context, name string, args map[string]any) ([]driver.Record, error)
}

type Agent struct {
	LLM          llm.ChatClient
	Tools        Dispatcher
	SystemPrompt string
	MaxTurns     int

	log *logger.Logger
}

type Answer struct {
	ConversationID string        `json:"conversation_id"`
	Text           string        `json:"answer"`
	Turns          int           `json:"turns"`
	Completed      bool          `json:"completed"`
	Transcript     []llm.Message `json:"transcript,omitempty"`
}

func New(chat llm.ChatClient, dispatcher Dispatcher, systemPrompt string, maxTurns int, log *logger.Logger) *Agent {
	if log == nil {
		log = logger.Nop()
	}
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	if maxTurns <= 0 {
		maxTurns = config.DefaultMaxTurns
	}
	return &Agent{
		LLM:          chat,
		Tools:        dispatcher,
		SystemPrompt: systemPrompt,
		MaxTurns:     maxTurns,
		log:          log.With("component", "Agent"),
	}
}

// Ask answers a question, letting the model call tools for at most MaxTurns
// model round-trips. Model, store and authentication failures abort the
// conversation; bad tool calls are reported back to the model.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	answer := &Answer{ConversationID: uuid.New().String()}
	log := a.log.With("conversation_id", answer.ConversationID)
	log.Info("Processing query", "question", logger.Truncate(question, 200))

	transcript := []llm.Message{
		{Role: llm.RoleSystem, Content: a.SystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}
	schemas := a.Tools.Schemas()

	var pending *llm.FunctionCall
	state := AwaitingModel
	for state != Done {
		switch state {
		case AwaitingModel:
			if answer.Turns == a.MaxTurns {
				log.Warn("Turn limit reached without a final answer", "turns", answer.Turns)
				state = Done
				continue
			}
			answer.Turns++
			log.Debug("Turn", "n", answer.Turns)

			reply, err := a.LLM.Chat(ctx, transcript, schemas)
			if err != nil {
				return nil, err
			}
			transcript = append(transcript, llm.Message{
				Role:         llm.RoleAssistant,
				Content:      reply.Content,
				FunctionCall: reply.FunctionCall,
			})

			if reply.FunctionCall != nil {
				pending = reply.FunctionCall
				state = DispatchingTool
			} else {
				log.Info("No function call, returning final answer")
				answer.Completed = true
				state = Done
			}

		case DispatchingTool:
			log.Info("Function call detected", "function", pending.Name)
			result, err := a.dispatch(ctx, log, *pending)
			if err != nil {
				return nil, err
			}
			transcript = append(transcript, llm.Message{
				Role:    llm.RoleFunction,
				Name:    pending.Name,
				Content: result,
				CallID:  pending.ID,
			})
			pending = nil
			state = AwaitingModel
		}
	}

	answer.Text = lastAssistantText(transcript)
	answer.Transcript = transcript
	return answer, nil
}

func (a *Agent) dispatch(ctx context.Context, log *logger.Logger, call llm.FunctionCall) (string, error) {
	args, ok := tools.DecodeArguments(call.Arguments)
	if !ok {
		log.Error("Failed to parse function arguments", "arguments", logger.Truncate(call.Arguments, 200))
	}

	records, err := a.Tools.Call(ctx, call.Name, args)
	var dispatchErr *tools.DispatchError
	if errors.As(err, &dispatchErr) {
		log.Error("Tool dispatch failed", "function", call.Name, "error", dispatchErr.Error())
		return dispatchErr.Error(), nil
	}
	if err != nil {
		return "", err
	}

	result := tools.Serialize(records)
	log.Info("Function result", "function", call.Name, "rows", len(records), "result", logger.Truncate(result, 100))
	return result, nil
}

func lastAssistantText(transcript []llm.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		m := transcript[i]
		if m.Role == llm.RoleAssistant && m.Content != "" {
			return m.Content
		}
	}
	return FailureMessage
}
