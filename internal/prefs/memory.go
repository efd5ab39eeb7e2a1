package prefs

import (
	"context"
	"sync"
)

// Memory is a process-local Store for dev and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
	hub  *hub
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string), hub: newHub()}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Edit(ctx context.Context, changes map[string]*string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for k, v := range changes {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = *v
	}
	m.mu.Unlock()
	m.hub.publish(Change{Keys: sortedKeys(changes)})
	return nil
}

func (m *Memory) Watch(ctx context.Context) (<-chan Change, error) {
	return m.hub.subscribe(ctx), nil
}

func (m *Memory) Close() error {
	m.hub.close()
	return nil
}
