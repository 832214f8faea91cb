package registry

import (
	"context"
	"sync"
)

// Store persists one ordered username list per chat.
//
// GetUsernames returns an empty slice for a chat that has never been written.
// SetUsernames upserts only the username list of that chat's document.
type Store interface {
	GetUsernames(ctx context.Context, chatID int64) ([]string, error)
	SetUsernames(ctx context.Context, chatID int64, usernames []string) error
}

// MemoryStore keeps registries in process memory. Used for tests and the
// "memory" backend; nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int64][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64][]string)}
}

func (m *MemoryStore) GetUsernames(_ context.Context, chatID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.data[chatID]...), nil
}

func (m *MemoryStore) SetUsernames(_ context.Context, chatID int64, usernames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[chatID] = append([]string{}, usernames...)
	return nil
}
