// Package inventory coordinates validation and storage of inventory items.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/item-management/internal/model"
	"github.com/vyrodovalexey/item-management/internal/store"
	"github.com/vyrodovalexey/item-management/internal/validator"
)

// Subscriber receives inventory change events.
// Publish must not block.
type Subscriber interface {
	Publish(event model.InventoryEvent)
}

// Service validates candidates and applies them to the store.
// Validation and the following append run under one lock so two
// requests cannot both pass the duplicate check.
type Service struct {
	mu     sync.Mutex
	store  store.Store
	logger *zap.Logger

	subsMu      sync.RWMutex
	subscribers []Subscriber
}

// NewService creates a new Service backed by s.
func NewService(s store.Store, logger *zap.Logger) *Service {
	svc := &Service{
		store:  s,
		logger: logger,
	}
	svc.refreshItemsGauge(context.Background())
	return svc
}

// Subscribe registers sub for change events.
func (s *Service) Subscribe(sub Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

// List returns all items in display order.
func (s *Service) List(ctx context.Context) ([]model.Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id int64) (*model.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// Categories returns the selectable categories with their icons.
func (s *Service) Categories() []model.CategoryInfo {
	return model.CategoryInfos()
}

// Validate runs the validator against the current items without changing anything.
// It returns "" when c would be accepted.
func (s *Service) Validate(ctx context.Context, c validator.Candidate) (string, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("validate item: %w", err)
	}
	return validator.Validate(c, items), nil
}

// Add validates c and stores it. A rejected candidate yields a
// *validator.Rejection and leaves the store untouched.
func (s *Service) Add(ctx context.Context, c validator.Candidate) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.store.List(ctx)
	if err != nil {
		return model.Item{}, fmt.Errorf("add item: %w", err)
	}

	if reason := validator.Validate(c, items); reason != "" {
		validationRejections.WithLabelValues(reason).Inc()
		s.logger.Debug("item rejected",
			zap.String("name", c.Name),
			zap.String("category", c.Category),
			zap.String("price", c.Price),
			zap.String("reason", reason),
		)
		return model.Item{}, validator.Reject(reason)
	}

	// Validate has already accepted both values.
	category, _ := model.ParseCategory(c.Category)
	price, _ := validator.ParsePrice(c.Price)

	item, err := s.store.Add(ctx, strings.TrimSpace(c.Name), category, price)
	if err != nil {
		return model.Item{}, fmt.Errorf("add item: %w", err)
	}

	itemsAdded.Inc()
	itemsGauge.Set(float64(len(items) + 1))
	s.logger.Info("item added",
		zap.Int64("id", item.ID),
		zap.String("name", item.Name),
		zap.String("category", item.Category.String()),
		zap.String("price", item.DisplayPrice()),
	)
	s.publish(model.NewItemAddedEvent(item))

	return item, nil
}

// Remove deletes the item with id. Unknown ids are ignored.
func (s *Service) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		s.logger.Debug("remove of unknown item ignored", zap.Int64("id", id))
		return nil
	case err != nil:
		return fmt.Errorf("remove item %d: %w", id, err)
	}

	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove item %d: %w", id, err)
	}

	itemsRemoved.Inc()
	s.refreshItemsGauge(ctx)
	s.logger.Info("item removed", zap.Int64("id", id))
	s.publish(model.NewItemRemovedEvent(id))

	return nil
}

func (s *Service) publish(event model.InventoryEvent) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for _, sub := range s.subscribers {
		sub.Publish(event)
	}
}

func (s *Service) refreshItemsGauge(ctx context.Context) {
	items, err := s.store.List(ctx)
	if err != nil {
		s.logger.Debug("failed to refresh items gauge", zap.Error(err))
		return
	}
	itemsGauge.Set(float64(len(items)))
}
