package store

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend. Stores opened over the same
// MemoryBackend share records the way contexts share one database file.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.records[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryBackend) Put(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, name)
	return nil
}

// LocalBus is an in-process Notifier. Notify calls every listener
// synchronously before returning.
type LocalBus struct {
	mu        sync.RWMutex
	listeners map[int]func(Change)
	nextID    int
}

// NewLocalBus returns a LocalBus with no listeners.
func NewLocalBus() *LocalBus {
	return &LocalBus{listeners: make(map[int]func(Change))}
}

func (b *LocalBus) Notify(_ context.Context, c Change) error {
	b.mu.RLock()
	listeners := make([]func(Change), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
	return nil
}

func (b *LocalBus) Listen(fn func(Change)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}, nil
}
