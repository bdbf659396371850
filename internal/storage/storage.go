// Package storage provides the key-value persistence boundary for the
// serialized item collection.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// DefaultKey is the key the item collection is stored under.
const DefaultKey = "inventoryItems"

// Storage errors.
var (
	ErrEmptyKey = errors.New("storage key cannot be empty")
	ErrClosed   = errors.New("storage is closed")
)

// KV is a durable key-value store holding opaque values.
type KV interface {
	// Get returns the value stored under key. The bool is false when no value
	// has ever been written.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases resources.
	Close() error
}

// PersistenceError reports a failed durable read or write.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
