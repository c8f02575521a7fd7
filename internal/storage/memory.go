package storage

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps state in process memory. State is lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Incr adds one to an integer value. A missing key counts from 0.
func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if raw, ok := m.data[key]; ok && raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, unavailable(BackendMemory, "incr", key, err)
		}
		current = v
	}
	current++
	m.data[key] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *MemoryStore) Backend() string { return BackendMemory }

func (m *MemoryStore) Close() error { return nil }
