// Package handler serves the inventory over HTTP and WebSocket.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/vyrodovalexey/item-management/internal/model"
	"github.com/vyrodovalexey/item-management/internal/validator"
)

// Version is the application version.
const Version = "1.0.0"

// Inventory is what the handlers need from the inventory service.
type Inventory interface {
	List(ctx context.Context) ([]model.Item, error)
	Get(ctx context.Context, id int64) (*model.Item, error)
	Categories() []model.CategoryInfo
	Validate(ctx context.Context, c validator.Candidate) (string, error)
	Add(ctx context.Context, c validator.Candidate) (model.Item, error)
	Remove(ctx context.Context, id int64) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// ItemRequest is the body of POST /api/v1/items and /api/v1/items/validate.
type ItemRequest struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Price    PriceField `json:"price"`
}

// Candidate converts the request into validator input.
func (r ItemRequest) Candidate() validator.Candidate {
	return validator.Candidate{
		Name:     r.Name,
		Category: r.Category,
		Price:    string(r.Price),
	}
}

// PriceField accepts a price sent as a JSON number or string and keeps
// its raw text. null and a missing field are the empty string.
type PriceField string

// UnmarshalJSON implements json.Unmarshaler.
func (p *PriceField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = PriceField(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("price must be a number or a string: %w", err)
		}
		*p = PriceField(n.String())
	}
	return nil
}
