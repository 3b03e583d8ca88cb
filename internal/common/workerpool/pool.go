package workerpool

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is used when a pool is created with a non-positive size
const DefaultSize = 8

// ErrPanicked is returned by Do when the submitted work panics
var ErrPanicked = errors.New("worker panicked")

// Pool runs blocking work (storage calls) on a bounded set of goroutines so it
// never runs on the goroutine that publishes events
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a pool that runs at most size jobs at a time
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}

	return &Pool{
		sem: semaphore.NewWeighted(int64(size)),
	}
}

// Do runs fn on a pool goroutine and waits for its result.
// ctx bounds the wait for a free slot and is handed to fn.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire worker: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("%w: %v", ErrPanicked, r)
			}
		}()
		errCh <- fn(ctx)
	}()

	return <-errCh
}
