package upload

import (
	"context"
	"errors"
	"sync"

	"github.com/debemdeboas/roteiro/internal/model"
)

var ErrInjected = errors.New("injected storage failure")

// MemoryStorage keeps objects in memory. FailAt makes the n-th Put (1-based) fail.
type MemoryStorage struct { // implements Storage
	mu      sync.Mutex
	objects map[string][]byte
	puts    int

	FailAt int
	Err    error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Put(ctx context.Context, bucket model.Bucket, name string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.puts++
	if m.FailAt > 0 && m.puts == m.FailAt {
		if m.Err != nil {
			return "", m.Err
		}
		return "", ErrInjected
	}

	key := string(bucket) + "/" + name
	m.objects[key] = append([]byte(nil), data...)
	return "memory://" + key, nil
}

func (m *MemoryStorage) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *MemoryStorage) Objects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
