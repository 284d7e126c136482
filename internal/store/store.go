// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/item-management/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrInvalidID = errors.New("invalid item ID")
)

// Store holds the ordered item sequence and allocates ids.
// It does not validate; callers must check candidates first.
type Store interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id int64) (*model.Item, error)

	// NextID returns the id the next Add will assign.
	NextID(ctx context.Context) (int64, error)

	// Add appends a new item and returns it with its assigned ID.
	Add(ctx context.Context, name string, category model.Category, price float64) (model.Item, error)

	// Remove deletes the item with the given ID. Unknown ids are ignored.
	Remove(ctx context.Context, id int64) error
}
