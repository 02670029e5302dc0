package session

import (
	"context"
	"sync"
)

// MemoryStore is a process-lifetime Store guarded by an RWMutex.
// Entries are never evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

// Get returns a copy of the stored session, or false when the chat is unknown.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// Save overwrites the session for chatID.
func (m *MemoryStore) Save(_ context.Context, chatID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = s
}

// Len reports how many chats have a session.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
