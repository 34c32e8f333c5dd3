// Package memory provides a thread-safe in-memory credential store.
// Suitable for tests and ephemeral kiosk deployments where device binding
// should not survive a restart.
package memory

import (
	"sync"

	"github.com/opencounter/posauth/credstore"
)

// Store is a thread-safe in-memory implementation of credstore.Store.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ credstore.Store = (*Store)(nil)

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return nil
}
