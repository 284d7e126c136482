// Package model defines data structures used throughout the application.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Item is one row of the inventory table.
type Item struct {
	ID       int64    `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Category Category `json:"category" yaml:"category"`
	Price    float64  `json:"price" yaml:"price"`
}

// DisplayPrice formats the price with two decimals the way the table shows it.
// Negative zero reads as 0.00.
func (i Item) DisplayPrice() string {
	p := i.Price
	if p == 0 {
		p = 0
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// NormalizeName returns the form of a name used for duplicate detection.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ValidationResponse reports the outcome of a dry-run validation.
type ValidationResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// CategoryInfo describes a category and its display icon.
type CategoryInfo struct {
	Name Category `json:"name"`
	Icon string   `json:"icon"`
}

// InventoryEvent is a message sent over the WebSocket feed.
type InventoryEvent struct {
	Type      string    `json:"type"`
	Item      *Item     `json:"item,omitempty"`
	Items     []Item    `json:"items,omitempty"`
	ID        int64     `json:"id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON always writes the items of a snapshot, so an empty store
// reads as "items":[].
func (e InventoryEvent) MarshalJSON() ([]byte, error) {
	type plain InventoryEvent
	if e.Type != EventTypeSnapshot {
		return json.Marshal(plain(e))
	}

	items := e.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(struct {
		plain
		Items []Item `json:"items"`
	}{plain: plain(e), Items: items})
}

// Inventory event types.
const (
	EventTypeSnapshot    = "snapshot"
	EventTypeItemAdded   = "item_added"
	EventTypeItemRemoved = "item_removed"
	EventTypePing        = "ping"
	EventTypePong        = "pong"
	EventTypeError       = "error"
)

// NewSnapshotEvent creates an event carrying the full item list.
func NewSnapshotEvent(items []Item) InventoryEvent {
	if items == nil {
		items = []Item{}
	}
	return InventoryEvent{
		Type:      EventTypeSnapshot,
		Items:     items,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemAddedEvent creates an event for a newly stored item.
func NewItemAddedEvent(item Item) InventoryEvent {
	return InventoryEvent{
		Type:      EventTypeItemAdded,
		Item:      &item,
		ID:        item.ID,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemRemovedEvent creates an event for a removed item id.
func NewItemRemovedEvent(id int64) InventoryEvent {
	return InventoryEvent{
		Type:      EventTypeItemRemoved,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}
