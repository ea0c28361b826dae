package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smart-extractor/backend/internal/panel"
)

// MaxSessions limits how many panels are kept in memory.
const MaxSessions = 100

// SessionMaxAge is how long an untouched panel is kept.
const SessionMaxAge = 30 * time.Minute

// Factory builds the panel for a new session.
type Factory func() *panel.Panel

// State is one browser tab's panel plus bookkeeping.
type State struct {
	ID           string
	Panel        *panel.Panel
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Manager keeps independent panels keyed by session id.
type Manager struct {
	sessions map[string]*State
	mu       sync.RWMutex
	newPanel Factory
	logger   *slog.Logger
}

// NewManager creates a session manager.
func NewManager(newPanel Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*State),
		newPanel: newPanel,
		logger:   logger,
	}
}

// Create starts a new session with a fresh panel.
func (m *Manager) Create() *State {
	now := time.Now()
	state := &State{
		ID:           uuid.New().String(),
		Panel:        m.newPanel(),
		CreatedAt:    now,
		LastAccessed: now,
	}

	m.mu.Lock()
	m.evictLocked()
	m.sessions[state.ID] = state
	m.mu.Unlock()

	m.logger.Info("session.created", "session_id", state.ID)
	return state
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if ok {
		state.LastAccessed = time.Now()
	}
	return state, ok
}

// Touch refreshes the last-access time. Returns false for unknown ids.
func (m *Manager) Touch(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Delete drops a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions not accessed within maxAge.
// Panels with an upload in flight or an open view stream are kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, state := range m.sessions {
		if state.LastAccessed.After(cutoff) || busy(state) {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	if removed > 0 {
		m.logger.Info("session.cleanup", "removed", removed, "remaining", len(m.sessions))
	}
	return removed
}

// evictLocked drops the least recently used idle sessions when at capacity.
// Must be called with m.mu held.
func (m *Manager) evictLocked() {
	if len(m.sessions) < MaxSessions {
		return
	}

	candidates := make([]*State, 0, len(m.sessions))
	for _, state := range m.sessions {
		if !busy(state) {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	toFree := len(m.sessions) - MaxSessions + 1
	for i := 0; i < toFree && i < len(candidates); i++ {
		delete(m.sessions, candidates[i].ID)
		m.logger.Info("session.evicted", "session_id", candidates[i].ID)
	}
}

// busy reports whether a panel is still in use by a tab.
func busy(state *State) bool {
	return state.Panel.Loading() || state.Panel.Watched()
}
