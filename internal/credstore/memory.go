package credstore

import (
	"context"
	"sync"
)

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps credential sets in process memory. Credentials survive
// page reloads for as long as the console process runs.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]map[Kind]string // session -> kind -> value
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[string]map[Kind]string),
	}
}

func (s *MemoryStore) Set(_ context.Context, session string, kind Kind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.slots[session]
	if !ok {
		set = make(map[Kind]string)
		s.slots[session] = set
	}
	set[kind] = value
	return nil
}

func (s *MemoryStore) Get(_ context.Context, session string, kind Kind) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.slots[session][kind]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Clear(_ context.Context, session string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots[session], kind)
	return nil
}

func (s *MemoryStore) ClearAll(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, session)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
