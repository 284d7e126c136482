// Package seed provides the initial item list the store starts with.
package seed

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/item-management/internal/model"
)

// Seed file errors.
var (
	ErrInvalidID       = errors.New("seed item id must be positive")
	ErrDuplicateID     = errors.New("seed item id is duplicated")
	ErrEmptyName       = errors.New("seed item name must not be empty")
	ErrDuplicateName   = errors.New("seed item name is duplicated")
	ErrInvalidCategory = errors.New("seed item category is not recognized")
	ErrNegativePrice   = errors.New("seed item price must not be negative")
	ErrInvalidPrice    = errors.New("seed item price must be a finite number")
)

// File is the on-disk layout of a seed file.
type File struct {
	Items []model.Item `yaml:"items"`
}

// Default returns the built-in seed items.
func Default() []model.Item {
	return []model.Item{
		{ID: 1, Name: "Color Pencil set 32", Category: model.CategoryStationary, Price: 11.99},
		{ID: 2, Name: "Small Kitty Lamp", Category: model.CategoryAppliance, Price: 44.88},
		{ID: 3, Name: "Knife Set 4pcs", Category: model.CategoryKitchenware, Price: 23.11},
	}
}

// Load returns the items from path, or Default when path is empty.
func Load(path string) ([]model.Item, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and checks a YAML seed file.
func LoadFile(path string) ([]model.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML seed data and checks every store invariant.
func Parse(data []byte) ([]model.Item, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	if err := Check(f.Items); err != nil {
		return nil, err
	}

	if f.Items == nil {
		return []model.Item{}, nil
	}
	return f.Items, nil
}

// Check verifies items could have been produced by the store itself.
func Check(items []model.Item) error {
	ids := make(map[int64]struct{}, len(items))
	names := make(map[string]struct{}, len(items))

	for i, it := range items {
		if it.ID <= 0 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidID)
		}
		if _, ok := ids[it.ID]; ok {
			return fmt.Errorf("item %d (id %d): %w", i, it.ID, ErrDuplicateID)
		}
		ids[it.ID] = struct{}{}

		norm := model.NormalizeName(it.Name)
		if norm == "" {
			return fmt.Errorf("item %d (id %d): %w", i, it.ID, ErrEmptyName)
		}
		if _, ok := names[norm]; ok {
			return fmt.Errorf("item %d (id %d): %w", i, it.ID, ErrDuplicateName)
		}
		names[norm] = struct{}{}

		if !it.Category.Valid() {
			return fmt.Errorf("item %d (id %d): %w: %q", i, it.ID, ErrInvalidCategory, it.Category)
		}
		if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) {
			return fmt.Errorf("item %d (id %d): %w", i, it.ID, ErrInvalidPrice)
		}
		if it.Price < 0 {
			return fmt.Errorf("item %d (id %d): %w", i, it.ID, ErrNegativePrice)
		}
	}

	return nil
}
