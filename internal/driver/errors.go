package driver

import "fmt"

// QueryError wraps any failure between submitting a query and collecting its
// records: connectivity, syntax, constraint violations.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to execute query: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
