package driver

import (
	"context"
)

// Record is one result row keyed by column name.
type Record map[string]any

type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]Record, error)
	Close(ctx context.Context) error
}

// TokenSource hands out a bearer token that is valid for the next call.
type TokenSource interface {
	Fresh(ctx context.Context) (string, error)
}
