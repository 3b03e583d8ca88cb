package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ChannelCapacity is the number of undelivered events a receiver buffers
// before it starts losing the oldest ones.
const ChannelCapacity = 100

// Everyone targets every subscriber of a session in Publish
const Everyone = ""

// ErrReceiverClosed is returned by Recv after Close
var ErrReceiverClosed = errors.New("receiver closed")

// LaggedError reports that a receiver fell behind and lost events.
// Receiving continues with the oldest event still buffered.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("receiver lagged behind and missed %d events", e.Missed)
}

// Config holds configuration for the event bus
type Config struct {
	// Logger defaults to a no-op logger
	Logger *zap.Logger
}

// Bus routes game events per session and subscriber, and session-list
// events to everyone watching the list. Broadcasters are created on first
// subscribe and are never removed.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	games    map[string]map[string]*broadcaster[GameEvent]
	sessions map[string]*broadcaster[SessionEvent]
}

// New creates an empty bus
func New(cfg *Config) *Bus {
	logger := zap.NewNop()
	if cfg != nil && cfg.Logger != nil {
		logger = cfg.Logger
	}

	return &Bus{
		logger:   logger.Named("events"),
		games:    make(map[string]map[string]*broadcaster[GameEvent]),
		sessions: make(map[string]*broadcaster[SessionEvent]),
	}
}

// Subscribe returns a receiver for game events of sessionID addressed to
// subscriberID or to everyone.
func (b *Bus) Subscribe(sessionID, subscriberID string) *Receiver[GameEvent] {
	b.mu.RLock()
	bc, ok := b.games[sessionID][subscriberID]
	b.mu.RUnlock()

	if !ok {
		b.mu.Lock()
		subscribers, exists := b.games[sessionID]
		if !exists {
			subscribers = make(map[string]*broadcaster[GameEvent])
			b.games[sessionID] = subscribers
		}
		bc, ok = subscribers[subscriberID]
		if !ok {
			bc = newBroadcaster[GameEvent]()
			subscribers[subscriberID] = bc
		}
		b.mu.Unlock()
	}

	return bc.subscribe()
}

// SubscribeSessions returns a receiver for session-list events
func (b *Bus) SubscribeSessions(subscriberID string) *Receiver[SessionEvent] {
	b.mu.RLock()
	bc, ok := b.sessions[subscriberID]
	b.mu.RUnlock()

	if !ok {
		b.mu.Lock()
		bc, ok = b.sessions[subscriberID]
		if !ok {
			bc = newBroadcaster[SessionEvent]()
			b.sessions[subscriberID] = bc
		}
		b.mu.Unlock()
	}

	return bc.subscribe()
}

// Publish delivers a game event to one subscriber of a session, or to all of
// them when target is Everyone. It never blocks on slow receivers.
func (b *Bus) Publish(sessionID, target string, event GameEvent) {
	b.mu.RLock()
	var targets []*broadcaster[GameEvent]
	if target == Everyone {
		targets = make([]*broadcaster[GameEvent], 0, len(b.games[sessionID]))
		for _, bc := range b.games[sessionID] {
			targets = append(targets, bc)
		}
	} else if bc, ok := b.games[sessionID][target]; ok {
		targets = append(targets, bc)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.logger.Debug("no subscribers for game event",
			zap.String("session_id", sessionID),
			zap.String("target", target),
			zap.String("type", event.eventType()))
		return
	}

	for _, bc := range targets {
		bc.send(event)
	}
}

// PublishSession delivers a session-list event to every list subscriber
func (b *Bus) PublishSession(event SessionEvent) {
	b.mu.RLock()
	targets := make([]*broadcaster[SessionEvent], 0, len(b.sessions))
	for _, bc := range b.sessions {
		targets = append(targets, bc)
	}
	b.mu.RUnlock()

	for _, bc := range targets {
		bc.send(event)
	}
}

// broadcaster fans one key's events out to all of its receivers.
// send holds the lock for the whole fan-out so every receiver sees the
// same order.
type broadcaster[T Event] struct {
	mu        sync.Mutex
	receivers map[*Receiver[T]]struct{}
}

func newBroadcaster[T Event]() *broadcaster[T] {
	return &broadcaster[T]{
		receivers: make(map[*Receiver[T]]struct{}),
	}
}

func (bc *broadcaster[T]) subscribe() *Receiver[T] {
	r := &Receiver[T]{
		ch:   make(chan T, ChannelCapacity),
		done: make(chan struct{}),
	}
	r.detach = func() {
		bc.mu.Lock()
		delete(bc.receivers, r)
		bc.mu.Unlock()
	}

	bc.mu.Lock()
	bc.receivers[r] = struct{}{}
	bc.mu.Unlock()

	return r
}

func (bc *broadcaster[T]) send(event T) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	for r := range bc.receivers {
		r.push(event)
	}
}

// Receiver is one consumer's view of a broadcaster. It is not safe for
// concurrent Recv calls.
type Receiver[T Event] struct {
	ch        chan T
	missed    atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
	detach    func()
}

// push is only called with the broadcaster lock held, so the receiver's
// consumer is the only other party touching ch.
func (r *Receiver[T]) push(event T) {
	for {
		select {
		case r.ch <- event:
			return
		default:
		}

		// Full: drop the oldest pending event to make room
		select {
		case <-r.ch:
			r.missed.Add(1)
		default:
		}
	}
}

// Recv blocks until an event arrives, the receiver is closed or ctx is done.
// After an overflow it first returns a *LaggedError with the number of
// events lost.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-r.done:
		return zero, ErrReceiverClosed
	default:
	}

	if n := r.missed.Swap(0); n > 0 {
		return zero, &LaggedError{Missed: n}
	}

	select {
	case event := <-r.ch:
		return event, nil
	case <-r.done:
		return zero, ErrReceiverClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close detaches the receiver. Safe to call more than once.
func (r *Receiver[T]) Close() {
	r.closeOnce.Do(func() {
		r.detach()
		close(r.done)
	})
}
