// Package docstore persists serialized board documents outside the
// live room state. Rooms hold the authoritative in-memory state; a
// docstore backend is where clients park full document exports
// between sessions.
package docstore

import (
	"context"
	"errors"
)

// ErrNameRequired is returned when a document name is empty.
var ErrNameRequired = errors.New("docstore: document name required")

// Store defines the interface for document persistence backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Fetch retrieves a document by name.
	// Returns (nil, nil) if the document doesn't exist.
	// Returns (data, nil) if found.
	// Returns (nil, err) on backend errors.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Put stores a document, overwriting any previous version.
	Put(ctx context.Context, name string, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}
