package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/supplychain/internal/logger"
)

// conn is a live handle to the database authenticated with one token.
type conn interface {
	run(ctx context.Context, database, query string, params map[string]any) ([]Record, error)
	close(ctx context.Context) error
}

type connectFunc func(ctx context.Context, uri, token string) (conn, error)

// Neo4jDriver owns the bearer token and the connection built from it. Every
// query checks the token first; when it was replaced the connection is rebuilt.
type Neo4jDriver struct {
	URI      string
	Database string
	Tokens   TokenSource

	mu        sync.Mutex
	conn      conn
	connToken string
	connect   connectFunc
	log       *logger.Logger
}

func NewNeo4jDriver(uri, database string, tokens TokenSource, log *logger.Logger) *Neo4jDriver {
	if log == nil {
		log = logger.Nop()
	}
	return &Neo4jDriver{
		URI:      uri,
		Database: database,
		Tokens:   tokens,
		connect:  dialBolt,
		log:      log.With("client", "Neo4j"),
	}
}

// ExecuteQuery runs query in its own session and returns every record in
// result order.
func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	c, err := d.live(ctx)
	if err != nil {
		return nil, err
	}

	records, err := c.run(ctx, d.Database, query, params)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return records, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.close(ctx)
	d.conn = nil
	d.connToken = ""
	d.log.Info("Neo4j driver closed")
	return err
}

// live returns a connection built from a token that is currently fresh.
func (d *Neo4jDriver) live(ctx context.Context) (conn, error) {
	token, err := d.Tokens.Fresh(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil && d.connToken == token {
		return d.conn, nil
	}

	c, err := d.connect(ctx, d.URI, token)
	if err != nil {
		return nil, &QueryError{Err: fmt.Errorf("connect to %s: %w", d.URI, err)}
	}
	if d.conn != nil {
		if err := d.conn.close(ctx); err != nil {
			d.log.Warn("Failed to close stale driver", "error", err)
		}
		d.log.Info("Access token refreshed, driver reinitialized")
	} else {
		d.log.Info("Neo4j driver initialized", "uri", d.URI)
	}
	d.conn = c
	d.connToken = token
	return c, nil
}

type boltConn struct {
	driver neo4j.DriverWithContext
}

func dialBolt(ctx context.Context, uri, token string) (conn, error) {
	drv, err := neo4j.NewDriverWithContext(uri, neo4j.BearerAuth(token))
	if err != nil {
		return nil, err
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		return nil, err
	}
	return &boltConn{driver: drv}, nil
}

func (b *boltConn) run(ctx context.Context, database, query string, params map[string]any) ([]Record, error) {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	rows, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record(row.AsMap()))
	}
	return records, nil
}

func (b *boltConn) close(ctx context.Context) error {
	return b.driver.Close(ctx)
}
