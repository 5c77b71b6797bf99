package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the in-memory registry of client sessions. Sessions do not
// survive a restart.
type Manager struct {
	deps Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewManager(deps Deps, ttl time.Duration) (*Manager, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		deps:     deps.withDefaults(),
		ttl:      ttl,
		sessions: map[string]*Controller{},
	}, nil
}

// Create opens an anonymous session on the landing view.
func (m *Manager) Create() *Controller {
	c := newController(uuid.NewString(), m.deps)
	m.mu.Lock()
	m.sessions[c.id] = c
	m.mu.Unlock()
	m.deps.Logger.Debug("session opened", "session_id", c.id)
	return c
}

func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		c.touch(time.Now())
	}
	return c, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, c := range m.sessions {
		if c.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) TTL() time.Duration { return m.ttl }
