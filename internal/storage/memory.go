package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryShard creates a new in-memory storage for every shard.
func MemoryShard() Shard {
	return func(shard string) (Persistence, error) {
		return NewMemoryStorage(), nil
	}
}

// MemoryStorage keeps the values as json in memory.
// Values are decoded on load, so that the caller never shares state with the store.
type MemoryStorage struct {
	lock     *sync.RWMutex
	Elements map[Key][]byte
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		lock:     new(sync.RWMutex),
		Elements: make(map[Key][]byte),
	}
}

func (m *MemoryStorage) Store(k Key, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal '%v': %w", k, err)
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Elements[k] = b
	return nil
}

func (m *MemoryStorage) Load(k Key, value interface{}) error {
	m.lock.RLock()
	defer m.lock.RUnlock()
	b, ok := m.Elements[k]
	if !ok {
		return fmt.Errorf("not found '%v': %w", k, NotFoundErr)
	}
	err := json.Unmarshal(b, value)
	if err != nil {
		return fmt.Errorf("could not unmarshal '%v': %v: %w", k, err, CouldNotLoadErr)
	}
	return nil
}
