package users

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps users in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]string)}
}

func (m *MemoryStore) GetHash(ctx context.Context, username string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.users[username]
	if !ok {
		return "", ErrNotFound
	}
	return hash, nil
}

func (m *MemoryStore) Insert(ctx context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; ok {
		return ErrDuplicate
	}
	m.users[username] = hash
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; !ok {
		return ErrNotFound
	}
	delete(m.users, username)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.users))
	for name := range m.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
