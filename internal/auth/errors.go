package auth

import "fmt"

// AuthenticationError is returned when the identity endpoint rejects the
// request or answers without a usable token.
type AuthenticationError struct {
	Scope      string
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed for scope %s: status %d: %s", e.Scope, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("authentication failed for scope %s: %v", e.Scope, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
