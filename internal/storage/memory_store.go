package storage

import (
	"strings"
	"sync"
)

// memoryStore keeps the follow lists in process memory.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]string)}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) ListFollows(userID string) ([]string, error) {
	return m.list(followingKey(userID)), nil
}

func (m *memoryStore) ListFollowedBy(userID string) ([]string, error) {
	return m.list(followedByKey(userID)), nil
}

func (m *memoryStore) Follow(userID, targetID string) error {
	if err := validateIDs(userID, targetID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[followingKey(userID)] = withID(m.data[followingKey(userID)], targetID)
	m.data[followedByKey(targetID)] = withID(m.data[followedByKey(targetID)], userID)
	return nil
}

func (m *memoryStore) Unfollow(userID, targetID string) error {
	if err := validateIDs(userID, targetID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[followingKey(userID)] = withoutID(m.data[followingKey(userID)], targetID)
	m.data[followedByKey(targetID)] = withoutID(m.data[followedByKey(targetID)], userID)
	return nil
}

func (m *memoryStore) AllFollows() (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string)
	for key, ids := range m.data {
		if strings.HasSuffix(key, followingSuffix) {
			out[key] = append([]string{}, ids...)
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteAll() error {
	m.mu.Lock()
	m.data = make(map[string][]string)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) list(key string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.data[key]...)
}
