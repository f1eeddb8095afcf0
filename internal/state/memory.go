package state

import (
	"context"
	"sync"
)

// MemoryKV keeps records in process memory. Hooks let tests observe or
// fail writes.
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	puts   map[string]int
	GetErr error
	PutErr error
	// BeforePut runs outside the lock before every Put.
	BeforePut func(key string)
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string][]byte{}, puts: map[string]int{}}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	if m.BeforePut != nil {
		m.BeforePut(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts[key]++
	if m.PutErr != nil {
		return m.PutErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Seed(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

func (m *MemoryKV) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryKV) Puts(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[key]
}

func (m *MemoryKV) Close() error { return nil }
