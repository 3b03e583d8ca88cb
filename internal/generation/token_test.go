package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KirkDiggler/threadly/internal/common/clock"
	"github.com/stretchr/testify/suite"
)

type countingSource struct {
	calls     atomic.Int32
	expiresIn time.Duration
	err       error
	delay     time.Duration
}

func (s *countingSource) FetchToken(ctx context.Context) (*AccessToken, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &AccessToken{
		Value:     fmt.Sprintf("token-%d", n),
		ExpiresIn: s.expiresIn,
	}, nil
}

type TokenCacheTestSuite struct {
	suite.Suite
	source *countingSource
	clock  *clock.ManualClock
	cache  *TokenCache
	ctx    context.Context
}

func (s *TokenCacheTestSuite) SetupTest() {
	s.source = &countingSource{expiresIn: time.Hour}
	s.clock = clock.NewManual(time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC))
	s.ctx = context.Background()

	cache, err := NewTokenCache(&TokenCacheConfig{
		Source: s.source,
		Clock:  s.clock,
	})
	s.Require().NoError(err)
	s.cache = cache
}

func TestTokenCacheTestSuite(t *testing.T) {
	suite.Run(t, new(TokenCacheTestSuite))
}

func (s *TokenCacheTestSuite) TestNewTokenCache_Validation() {
	_, err := NewTokenCache(nil)
	s.Error(err)

	_, err = NewTokenCache(&TokenCacheConfig{})
	s.Error(err)
}

func (s *TokenCacheTestSuite) TestReusesTokenUntilMargin() {
	token, err := s.cache.Token(s.ctx)
	s.Require().NoError(err)
	s.Equal("token-1", token)

	s.clock.Advance(54 * time.Minute)
	token, err = s.cache.Token(s.ctx)
	s.Require().NoError(err)
	s.Equal("token-1", token)
	s.Equal(int32(1), s.source.calls.Load())

	// Lifetime 60m minus the 5m margin
	s.clock.Advance(time.Minute)
	token, err = s.cache.Token(s.ctx)
	s.Require().NoError(err)
	s.Equal("token-2", token)
	s.Equal(int32(2), s.source.calls.Load())
}

func (s *TokenCacheTestSuite) TestCustomMargin() {
	cache, err := NewTokenCache(&TokenCacheConfig{
		Source: s.source,
		Clock:  s.clock,
		Margin: 30 * time.Minute,
	})
	s.Require().NoError(err)

	_, err = cache.Token(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(31 * time.Minute)
	token, err := cache.Token(s.ctx)
	s.Require().NoError(err)
	s.Equal("token-2", token)
}

func (s *TokenCacheTestSuite) TestMissingLifetimeUsesDefault() {
	s.source.expiresIn = 0

	_, err := s.cache.Token(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(50 * time.Minute)
	token, err := s.cache.Token(s.ctx)
	s.Require().NoError(err)
	s.Equal("token-1", token)
}

func (s *TokenCacheTestSuite) TestRefreshFailureIsReturnedAndRetried() {
	s.source.err = errors.New("auth down")

	_, err := s.cache.Token(s.ctx)
	s.Require().Error(err)
	s.Contains(err.Error(), "auth down")

	s.source.err = nil
	token, err := s.cache.Token(s.ctx)
	s.Require().NoError(err)
	s.Equal("token-2", token)
}

func (s *TokenCacheTestSuite) TestConcurrentCallersShareOneRefresh() {
	s.source.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := s.cache.Token(s.ctx)
			s.NoError(err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), s.source.calls.Load())
	for _, token := range tokens {
		s.Equal("token-1", token)
	}
}
