package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"go.uber.org/zap"
)

const (
	// DefaultRefreshMargin is subtracted from a token's lifetime before caching it
	DefaultRefreshMargin = 5 * time.Minute

	// defaultTokenLifetime applies when the source does not report one
	defaultTokenLifetime = time.Hour
)

// TokenProvider hands out a currently valid bearer token
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenSource mints a fresh access token
type TokenSource interface {
	FetchToken(ctx context.Context) (*AccessToken, error)
}

// AccessToken is a bearer token and how long it is valid for
type AccessToken struct {
	Value     string
	ExpiresIn time.Duration
}

// TokenCacheConfig holds configuration for a TokenCache
type TokenCacheConfig struct {
	// Source mints tokens on refresh
	Source TokenSource

	// Margin is taken off every token's lifetime; defaults to DefaultRefreshMargin
	Margin time.Duration

	Clock  clock.Clock
	Logger *zap.Logger
}

// TokenCache shares one token between all callers and refreshes it
// once it is within Margin of expiring.
type TokenCache struct {
	source TokenSource
	margin time.Duration
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

// NewTokenCache creates an empty cache. The first Token call fetches.
func NewTokenCache(cfg *TokenCacheConfig) (*TokenCache, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Source == nil {
		return nil, errors.New("token source cannot be nil")
	}

	c := &TokenCache{
		source: cfg.Source,
		margin: cfg.Margin,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
	if c.margin <= 0 {
		c.margin = DefaultRefreshMargin
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c, nil
}

// Token returns the cached token while it is valid, otherwise refreshes it
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiry := c.token, c.expiry
	c.mu.RUnlock()

	if token != "" && c.clock.Now().Before(expiry) {
		return token, nil
	}

	return c.refresh(ctx)
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock
	if c.token != "" && c.clock.Now().Before(c.expiry) {
		return c.token, nil
	}

	fresh, err := c.source.FetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	lifetime := fresh.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}

	c.token = fresh.Value
	c.expiry = c.clock.Now().Add(lifetime - c.margin)

	c.logger.Debug("access token refreshed",
		zap.Duration("lifetime", lifetime),
		zap.Time("expiry", c.expiry))

	return c.token, nil
}
