// Package scratch provides the key/value media behind the draft store. Values are opaque
// bytes; callers own the encoding.
package scratch

import (
	"sync"
)

// Medium is a process-wide key/value store that outlives a single request or command.
type Medium interface {
	// Get returns the value stored under key. A missing key is not an error.
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

type Memory struct { // implements Medium
	values sync.Map
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	v, ok := m.values.Load(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v.([]byte)...), true, nil
}

func (m *Memory) Put(key string, value []byte) error {
	m.values.Store(key, append([]byte(nil), value...))
	return nil
}

func (m *Memory) Delete(key string) error {
	m.values.Delete(key)
	return nil
}
