package docstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory document store. It's suitable for
// development and tests; documents are lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Fetch retrieves a document by name.
func (s *MemoryStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores a document, overwriting any previous version.
func (s *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ErrNameRequired
	}
	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.docs[name] = stored
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
