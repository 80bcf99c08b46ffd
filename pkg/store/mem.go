package store

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type memStore struct {
	sync.RWMutex
	data map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() Store {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(key string) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memStore) Put(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.Lock()
	m.data[key] = stored
	m.Unlock()
	return nil
}

func (m *memStore) Delete(key string) error {
	m.Lock()
	delete(m.data, key)
	m.Unlock()
	return nil
}

func (m *memStore) Contains(key string) (bool, error) {
	m.RLock()
	_, ok := m.data[key]
	m.RUnlock()
	return ok, nil
}

func (m *memStore) List(prefix string) ([]string, error) {
	m.RLock()
	defer m.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Info() Info {
	return Info{
		Name:            "memory",
		SupportsWrites:  true,
		SupportsDeletes: true,
		SupportsListing: true,
	}
}
