package validator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/item-management/internal/model"
)

func existingItems() []model.Item {
	return []model.Item{
		{ID: 1, Name: "Color Pencil set 32", Category: model.CategoryStationary, Price: 11.99},
		{ID: 2, Name: "  pencil  ", Category: model.CategoryStationary, Price: 1},
		{ID: 3, Name: "Pen", Category: model.CategoryStationary, Price: 2},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		existing  []model.Item
		want      string
	}{
		{
			name:      "valid candidate",
			candidate: Candidate{Name: "Eraser", Category: "Stationary", Price: "1.50"},
			want:      "",
		},
		{
			name:      "valid against existing items",
			candidate: Candidate{Name: "Mug", Category: "Kitchenware", Price: "5"},
			existing:  existingItems(),
			want:      "",
		},
		{
			name:      "empty name",
			candidate: Candidate{Name: "", Category: "Stationary", Price: "1"},
			want:      ReasonEmptyName,
		},
		{
			name:      "whitespace name",
			candidate: Candidate{Name: " \t ", Category: "Stationary", Price: "1"},
			want:      ReasonEmptyName,
		},
		{
			name:      "empty name wins over every other failure",
			candidate: Candidate{Name: "  ", Category: "", Price: "-1"},
			existing:  existingItems(),
			want:      ReasonEmptyName,
		},
		{
			name:      "duplicate ignoring case and whitespace",
			candidate: Candidate{Name: "Pencil", Category: "Stationary", Price: "1"},
			existing:  existingItems(),
			want:      ReasonDuplicated,
		},
		{
			name:      "duplicate with padded candidate",
			candidate: Candidate{Name: "  PEN ", Category: "Stationary", Price: "1"},
			existing:  existingItems(),
			want:      ReasonDuplicated,
		},
		{
			name:      "duplicate wins over category and price",
			candidate: Candidate{Name: "pen", Category: "", Price: "abc"},
			existing:  existingItems(),
			want:      ReasonDuplicated,
		},
		{
			name:      "prefix is not a duplicate",
			candidate: Candidate{Name: "Pens", Category: "Stationary", Price: "1"},
			existing:  existingItems(),
			want:      "",
		},
		{
			name:      "missing category",
			candidate: Candidate{Name: "Notebook", Category: "", Price: "3"},
			want:      ReasonMissingCategory,
		},
		{
			name:      "unknown category",
			candidate: Candidate{Name: "Notebook", Category: "Furniture", Price: "3"},
			want:      ReasonMissingCategory,
		},
		{
			name:      "category is case sensitive",
			candidate: Candidate{Name: "Notebook", Category: "stationary", Price: "3"},
			want:      ReasonMissingCategory,
		},
		{
			name:      "category wins over price",
			candidate: Candidate{Name: "Notebook", Category: "", Price: "-3"},
			want:      ReasonMissingCategory,
		},
		{
			name:      "zero price",
			candidate: Candidate{Name: "Freebie", Category: "Appliance", Price: "0"},
			want:      "",
		},
		{
			name:      "empty price reads as zero",
			candidate: Candidate{Name: "Freebie", Category: "Appliance", Price: ""},
			want:      "",
		},
		{
			name:      "negative price",
			candidate: Candidate{Name: "Toaster", Category: "Appliance", Price: "-0.01"},
			want:      ReasonNegativePrice,
		},
		{
			name:      "non-numeric price",
			candidate: Candidate{Name: "Toaster", Category: "Appliance", Price: "cheap"},
			want:      ReasonNegativePrice,
		},
		{
			name:      "NaN price",
			candidate: Candidate{Name: "Toaster", Category: "Appliance", Price: "NaN"},
			want:      ReasonNegativePrice,
		},
		{
			name:      "infinite price",
			candidate: Candidate{Name: "Toaster", Category: "Appliance", Price: "Inf"},
			want:      ReasonNegativePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.candidate, tt.existing)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_DoesNotMutateExisting(t *testing.T) {
	existing := existingItems()
	before := append([]model.Item(nil), existing...)

	_ = Validate(Candidate{Name: "PEN", Category: "Stationary", Price: "1"}, existing)
	_ = Validate(Candidate{Name: "Mug", Category: "Kitchenware", Price: "1"}, existing)

	assert.Equal(t, before, existing)
}

func TestValidate_Deterministic(t *testing.T) {
	c := Candidate{Name: "pen", Category: "Stationary", Price: "2"}
	existing := existingItems()

	first := Validate(c, existing)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Validate(c, existing))
	}
}

func TestIsDuplicate(t *testing.T) {
	existing := existingItems()

	assert.True(t, IsDuplicate("color pencil SET 32", existing))
	assert.True(t, IsDuplicate("pencil", existing))
	assert.False(t, IsDuplicate("pencil set", existing))
	assert.False(t, IsDuplicate("pen", nil))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "0", want: 0},
		{raw: "1.50", want: 1.5},
		{raw: " 44.88 ", want: 44.88},
		{raw: "", want: 0},
		{raw: "   ", want: 0},
		{raw: "-0.01", want: -0.01},
		{raw: "1e2", want: 100},
		{raw: "abc", wantErr: true},
		{raw: "1,50", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "+Inf", wantErr: true},
		{raw: "1e400", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.raw), func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPrice))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// Only finite decimal numbers are prices. Spellings a loose numeric
// conversion would take, like Infinity or hex, are invalid.
func TestParsePrice_OnlyFiniteDecimals(t *testing.T) {
	for _, raw := range []string{"Infinity", "-Infinity", "inf", "1e400", "0x10", "0x1p4"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParsePrice(raw)
			assert.ErrorIs(t, err, ErrInvalidPrice)
		})
	}
}

func TestRejection(t *testing.T) {
	err := fmt.Errorf("add item: %w", Reject(ReasonDuplicated))

	r, ok := IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonDuplicated, r.Reason)
	assert.Equal(t, "add item: "+ReasonDuplicated, err.Error())

	_, ok = IsRejection(errors.New("boom"))
	assert.False(t, ok)
}
