package session

import "sync"

// Manager maps chat IDs to their sessions. Each /predict starts a fresh
// cascade; callback taps look the existing one up.
type Manager struct {
	mu     sync.Mutex
	byChat map[int64]*Session
}

func NewManager() *Manager {
	return &Manager{byChat: map[int64]*Session{}}
}

// Start replaces any previous session for the chat with a fresh one. The
// replaced session is invalidated so fetches it still has in flight resolve
// to nothing instead of messaging the chat a second time.
func (m *Manager) Start(chatID int64) *Session {
	s := New()
	m.mu.Lock()
	if old := m.byChat[chatID]; old != nil {
		old.invalidate()
	}
	m.byChat[chatID] = s
	m.mu.Unlock()
	return s
}

// Get returns the chat's session, or nil when no cascade has been started.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byChat[chatID]
}

// GetOrCreate returns the chat's session, creating one when the chat has
// never started a cascade. Commands that only need the submission slot
// (like /crop) use this so the single-request-per-chat guarantee always
// holds.
func (m *Manager) GetOrCreate(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byChat[chatID]; ok {
		return s
	}
	s := New()
	m.byChat[chatID] = s
	return s
}
