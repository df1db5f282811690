package service

import (
	"context"
	"errors"
	"sync"
)

type memoryStorage struct {
	mu      sync.Mutex
	values  map[string]string
	writes  int
	failSet error
	failGet error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{values: make(map[string]string)}
}

func (m *memoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", false, m.failGet
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.values[key] = value
	m.writes++
	return nil
}

var errDiskFull = errors.New("disk full")
