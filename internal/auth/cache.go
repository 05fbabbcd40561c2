package auth

import (
	"context"
	"sync"
	"time"

	"github.com/agenthands/supplychain/internal/logger"
)

// RefreshMargin is how long before expiry a cached token is replaced.
const RefreshMargin = 5 * time.Minute

// TokenCache holds the current token for one scope and refreshes it
// proactively.
type TokenCache struct {
	Provider Provider
	Now      func() time.Time

	mu    sync.Mutex
	token Token
	log   *logger.Logger
}

func NewTokenCache(p Provider, log *logger.Logger) *TokenCache {
	if log == nil {
		log = logger.Nop()
	}
	return &TokenCache{
		Provider: p,
		Now:      time.Now,
		log:      log,
	}
}

// Fresh returns a token that is valid for at least RefreshMargin, fetching a
// new one first when needed.
func (c *TokenCache) Fresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Value != "" && c.Now().Before(c.token.Expiry.Add(-RefreshMargin)) {
		return c.token.Value, nil
	}

	if c.token.Value == "" {
		c.log.Info("Fetching access token")
	} else {
		c.log.Info("Refreshing access token", "expiry", c.token.Expiry)
	}

	tok, err := c.Provider.Fetch(ctx)
	if err != nil {
		c.log.Error("Failed to fetch access token", "error", err)
		return "", err
	}
	c.token = tok
	c.log.Info("Access token retrieved", "expiry", tok.Expiry)
	return tok.Value, nil
}

// Expiry of the cached token; zero before the first fetch.
func (c *TokenCache) Expiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.Expiry
}

// Set primes the cache, mainly for tests and for tokens obtained elsewhere.
func (c *TokenCache) Set(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}
