package storage

import (
	"errors"
	"slices"
	"sync"

	"github.com/starford/codex/internal/apperr"
)

var errWriteDisabled = errors.New("storage: writes disabled")

// Memory is an in-process Provider used by tests and the memory driver.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	// FailWrites makes Set return an error, simulating an unavailable store.
	FailWrites bool
}

// NewMemory returns an empty Memory provider.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Set(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errWriteDisabled
	}
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
