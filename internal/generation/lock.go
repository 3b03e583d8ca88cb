package generation

import "sync"

// Locker tracks which sessions currently have a story generation running.
// At most one Guard exists per session at a time.
type Locker struct {
	mu     sync.Mutex
	active map[string]*Guard
}

// NewLocker creates an empty locker
func NewLocker() *Locker {
	return &Locker{
		active: make(map[string]*Guard),
	}
}

// TryAcquire claims the session's generation slot. It returns false if the
// slot is already held.
func (l *Locker) TryAcquire(sessionID string) (*Guard, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.active[sessionID]; held {
		return nil, false
	}

	g := &Guard{
		sessionID: sessionID,
		locker:    l,
	}
	l.active[sessionID] = g

	return g, true
}

// IsGenerating reports whether the session's slot is held
func (l *Locker) IsGenerating(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, held := l.active[sessionID]
	return held
}

// ForceRelease frees the session's slot regardless of who holds it.
// The displaced guard's Release becomes a no-op.
func (l *Locker) ForceRelease(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.active, sessionID)
}

func (l *Locker) release(g *Guard) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active[g.sessionID] == g {
		delete(l.active, g.sessionID)
	}
}

// Guard is proof of holding a session's generation slot. Holders defer
// Release so the slot is freed on every exit path.
type Guard struct {
	sessionID string
	locker    *Locker
	once      sync.Once
}

// SessionID returns the session this guard holds
func (g *Guard) SessionID() string {
	return g.sessionID
}

// Release frees the slot. Only the first call has an effect.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		g.locker.release(g)
	})
}
