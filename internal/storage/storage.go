// Package storage provides the key-value capability used to persist column
// visibility and order. Records are advisory caches: callers must tolerate
// missing or corrupt values.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage is a minimal string key-value store.
type Storage interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the backend named by kind, rooted at dir where applicable.
func Open(kind, dir string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(dir)
	case BackendSQLite:
		return OpenSQLite(dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// Close releases resources held by s when it implements io.Closer.
func Close(s Storage) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Memory is an in-process Storage.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
