package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "pencil", "pencil"},
		{"uppercase", "PENCIL", "pencil"},
		{"surrounding whitespace", "  Pencil  ", "pencil"},
		{"tabs and newlines", "\tPen Set\n", "pen set"},
		{"inner whitespace kept", "Pen  Set", "pen  set"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestItem_DisplayPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{0, "0.00"},
		{math.Copysign(0, -1), "0.00"},
		{1.5, "1.50"},
		{11.99, "11.99"},
		{44.876, "44.88"},
		{5, "5.00"},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.price, 'g', -1, 64), func(t *testing.T) {
			item := Item{Price: tt.price}
			if got := item.DisplayPrice(); got != tt.want {
				t.Errorf("DisplayPrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestItem_JSONMarshal(t *testing.T) {
	// Arrange
	item := Item{
		ID:       7,
		Name:     "Knife Set 4pcs",
		Category: CategoryKitchenware,
		Price:    23.11,
	}

	// Act
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	// Assert
	got := string(data)
	for _, want := range []string{`"id":7`, `"name":"Knife Set 4pcs"`, `"category":"Kitchenware"`, `"price":23.11`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON %s should contain %s", got, want)
		}
	}
}

func TestAPIResponse_Success(t *testing.T) {
	// Act
	resp := NewSuccessResponse([]Item{{ID: 1, Name: "Mug"}})

	// Assert
	if !resp.Success {
		t.Error("Success should be true")
	}
	if len(resp.Data) != 1 {
		t.Errorf("Data length = %d, want 1", len(resp.Data))
	}
	if resp.Error != "" {
		t.Errorf("Error = %q, want empty", resp.Error)
	}
}

func TestAPIResponse_Error(t *testing.T) {
	// Act
	resp := NewErrorResponse[*Item]("boom")

	// Assert
	if resp.Success {
		t.Error("Success should be false")
	}
	if resp.Data != nil {
		t.Error("Data should be nil")
	}
	if resp.Error != "boom" {
		t.Errorf("Error = %q, want boom", resp.Error)
	}
}

func TestErrorResponse_JSONOmitEmpty(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Code: 422, Message: "Please select a category"})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if strings.Contains(string(data), "details") {
		t.Errorf("details should be omitted, got %s", data)
	}
}

func TestNewSnapshotEvent(t *testing.T) {
	t.Run("nil items become empty list", func(t *testing.T) {
		event := NewSnapshotEvent(nil)

		if event.Type != EventTypeSnapshot {
			t.Errorf("Type = %s, want %s", event.Type, EventTypeSnapshot)
		}
		if event.Items == nil {
			t.Error("Items should not be nil")
		}
		if event.Timestamp.IsZero() {
			t.Error("Timestamp should be set")
		}
	})

	t.Run("items kept in order", func(t *testing.T) {
		event := NewSnapshotEvent([]Item{{ID: 3}, {ID: 1}})

		if len(event.Items) != 2 || event.Items[0].ID != 3 || event.Items[1].ID != 1 {
			t.Errorf("Items = %+v, want ids [3 1]", event.Items)
		}
	})
}

func TestInventoryEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		event     InventoryEvent
		wantItems bool
		want      string
	}{
		{name: "empty snapshot", event: NewSnapshotEvent(nil), wantItems: true, want: `"items":[]`},
		{name: "zero value snapshot", event: InventoryEvent{Type: EventTypeSnapshot}, wantItems: true, want: `"items":[]`},
		{name: "snapshot", event: NewSnapshotEvent([]Item{{ID: 2, Name: "Mug"}}), wantItems: true, want: `"items":[{"id":2`},
		{name: "item removed", event: NewItemRemovedEvent(2), want: `"id":2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("got %s, want it to contain %s", data, tt.want)
			}
			if got := strings.Contains(string(data), `"items"`); got != tt.wantItems {
				t.Errorf("items present = %v, want %v in %s", got, tt.wantItems, data)
			}
			if strings.Count(string(data), `"type"`) != 1 {
				t.Errorf("type written more than once: %s", data)
			}

			var back InventoryEvent
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if back.Type != tt.event.Type || len(back.Items) != len(tt.event.Items) {
				t.Errorf("round trip = %+v, want %+v", back, tt.event)
			}
		})
	}
}

func TestNewItemAddedEvent(t *testing.T) {
	item := Item{ID: 4, Name: "Mug", Category: CategoryKitchenware, Price: 5}

	event := NewItemAddedEvent(item)

	if event.Type != EventTypeItemAdded {
		t.Errorf("Type = %s, want %s", event.Type, EventTypeItemAdded)
	}
	if event.Item == nil || *event.Item != item {
		t.Errorf("Item = %+v, want %+v", event.Item, item)
	}
	if event.ID != 4 {
		t.Errorf("ID = %d, want 4", event.ID)
	}
}

func TestNewItemRemovedEvent(t *testing.T) {
	event := NewItemRemovedEvent(2)

	if event.Type != EventTypeItemRemoved {
		t.Errorf("Type = %s, want %s", event.Type, EventTypeItemRemoved)
	}
	if event.ID != 2 {
		t.Errorf("ID = %d, want 2", event.ID)
	}
	if event.Item != nil {
		t.Error("Item should be nil")
	}
}
