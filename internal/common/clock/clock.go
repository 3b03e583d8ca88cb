package clock

//go:generate mockgen -package=mocks -destination=mocks/mock_clock.go github.com/KirkDiggler/threadly/internal/common/clock Clock

import (
	"sync"
	"time"
)

// Clock is the time source used by services and repositories
type Clock interface {
	Now() time.Time
}

// DefaultClock implements the Clock interface using the system clock
type DefaultClock struct{}

// New returns the system clock
func New() *DefaultClock {
	return &DefaultClock{}
}

// Now returns the current time in UTC
func (c *DefaultClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock only moves when told to. Every call to Now advances it by Step,
// which keeps join times strictly increasing in tests.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewManual creates a manual clock starting at start
func NewManual(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time and then advances it by Step
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.Step)
	return now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
