// Package store owns the in-memory inventory collection and the id counter.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Store errors.
var (
	ErrNotInitialized     = errors.New("item store is not initialized")
	ErrAlreadyInitialized = errors.New("item store is already initialized")
	ErrIDSpaceExhausted   = errors.New("item id space is exhausted")
)

// Loader supplies the previously persisted collection.
type Loader interface {
	Load(ctx context.Context) []model.Item
}

// ChangeFunc observes the collection after a mutation.
type ChangeFunc func(model.Snapshot)

// Store defines the operations UI collaborators may invoke.
type Store interface {
	// List returns the collection in display order.
	List() []model.Item

	// Get returns the item with the given id.
	Get(id string) (model.Item, bool)

	// Add validates the draft and appends a new item with the next id.
	Add(draft model.Draft) (model.Item, error)

	// Edit validates the draft and replaces the item with the given id in
	// place. The bool is false when no item has that id; the collection is
	// then left unchanged.
	Edit(id string, draft model.Draft) (model.Item, bool, error)

	// Delete removes the item with the given id. Callers obtain the user's
	// confirmation first. The bool is false when no item has that id.
	Delete(id string) (bool, error)
}
