package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vyrodovalexey/item-management/internal/model"
)

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []model.Item
}

// NewMemoryStore creates a MemoryStore holding seed in the given order.
// Seed ids are kept as provided.
func NewMemoryStore(seed ...model.Item) *MemoryStore {
	return &MemoryStore{
		items: slices.Clone(seed),
	}
}

// List returns a copy of all items in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	item := s.items[idx]
	return &item, nil
}

// NextID returns one more than the highest id present, or 1 when empty.
func (s *MemoryStore) NextID(ctx context.Context) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("next id: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextID(), nil
}

// Add appends a new item with the next id.
func (s *MemoryStore) Add(
	ctx context.Context,
	name string,
	category model.Category,
	price float64,
) (model.Item, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, fmt.Errorf("add item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := model.Item{
		ID:       s.nextID(),
		Name:     name,
		Category: category,
		Price:    price,
	}
	s.items = append(s.items, item)

	return item, nil
}

// Remove deletes the item with the given id. Removing an unknown id is a no-op.
func (s *MemoryStore) Remove(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("remove item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.DeleteFunc(s.items, func(it model.Item) bool {
		return it.ID == id
	})

	return nil
}

// nextID must be called with the lock held.
func (s *MemoryStore) nextID() int64 {
	var maxID int64
	for _, it := range s.items {
		maxID = max(maxID, it.ID)
	}
	return maxID + 1
}

// indexOf must be called with the lock held.
func (s *MemoryStore) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(it model.Item) bool {
		return it.ID == id
	})
}
