package tools

import (
	"errors"
	"fmt"
)

var ErrUnknownTool = errors.New("unknown tool")

// ArgumentError reports a function-call argument that could not be used.
type ArgumentError struct {
	Key    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Key, e.Reason)
}

// DispatchError is a tool call that never reached the database: the tool is
// unknown or its arguments are unusable. Callers report it back to the model
// instead of aborting.
type DispatchError struct {
	Tool string
	Err  error
}

func (e *DispatchError) Error() string {
	if errors.Is(e.Err, ErrUnknownTool) {
		return fmt.Sprintf("Function %s not found.", e.Tool)
	}
	return fmt.Sprintf("Error executing %s: %v", e.Tool, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
