package browse

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/browserpike/backend/internal/shared/id"
)

// CookieName carries the session token
const CookieName = "pike_session"

// Manager holds browse contexts in memory, keyed by session token
type Manager struct {
	releaser Releaser
	idle     time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Context
}

// NewManager creates a manager. Contexts unused for idle are dropped the
// next time a session is created; zero keeps them forever.
func NewManager(releaser Releaser, idle time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		releaser: releaser,
		idle:     idle,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Context),
	}
}

// Resolve returns the context for token, creating a new session when the
// token is unknown. created reports whether a new token was issued.
func (m *Manager) Resolve(token string) (ctx *Context, created bool) {
	now := m.now()

	if token != "" {
		m.mu.RLock()
		c, ok := m.sessions[token]
		m.mu.RUnlock()
		if ok {
			c.touch(now)
			return c, false
		}
	}

	c := newContext(uuid.NewString(), m.releaser, now)

	m.mu.Lock()
	expired := m.sweepLocked(now)
	m.sessions[c.ID] = c
	m.mu.Unlock()

	for _, old := range expired {
		old.Reset()
	}

	m.logger.Debug("browse session created", zap.String("session", c.ID))
	return c, true
}

// Get returns an existing context
func (m *Manager) Get(token string) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[token]
	return c, ok
}

// Drop ends a session and releases its bundles
func (m *Manager) Drop(token string) bool {
	m.mu.Lock()
	c, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if ok {
		c.Reset()
	}
	return ok
}

// Released detaches bundleID from the session holding it and returns that
// session's token. Bundles a session released itself are already detached.
func (m *Manager) Released(bundleID id.BundleID) (string, bool) {
	m.mu.RLock()
	contexts := make([]*Context, 0, len(m.sessions))
	for _, c := range m.sessions {
		contexts = append(contexts, c)
	}
	m.mu.RUnlock()

	for _, c := range contexts {
		if c.Disown(bundleID) {
			return c.ID, true
		}
	}
	return "", false
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) sweepLocked(now time.Time) []*Context {
	if m.idle <= 0 {
		return nil
	}
	var expired []*Context
	cutoff := now.Add(-m.idle)
	for token, c := range m.sessions {
		if c.idleSince().Before(cutoff) {
			delete(m.sessions, token)
			expired = append(expired, c)
		}
	}
	return expired
}
