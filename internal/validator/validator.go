// Package validator decides whether a candidate item may join the inventory.
package validator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/item-management/internal/model"
)

// Rejection reasons, in the order the checks run.
const (
	ReasonEmptyName       = "Item name must not be empty"
	ReasonDuplicated      = "Item must not be duplicated"
	ReasonMissingCategory = "Please select a category"
	ReasonNegativePrice   = "Price must not be less than 0"
)

// ErrInvalidPrice is returned by ParsePrice for values that are not a finite number.
var ErrInvalidPrice = errors.New("price is not a number")

// Candidate holds raw form values for a new item.
type Candidate struct {
	Name     string
	Category string
	Price    string
}

// Rejection is the error form of a failed validation.
type Rejection struct {
	Reason string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return r.Reason
}

// Reject wraps a reason as a *Rejection.
func Reject(reason string) *Rejection {
	return &Rejection{Reason: reason}
}

// IsRejection reports whether err is a validation rejection and returns it.
func IsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Validate checks c against the existing items and returns the first
// failing reason, or "" when c is acceptable.
func Validate(c Candidate, existing []model.Item) string {
	trimmed := strings.TrimSpace(c.Name)
	if trimmed == "" {
		return ReasonEmptyName
	}

	if IsDuplicate(trimmed, existing) {
		return ReasonDuplicated
	}

	if _, ok := model.ParseCategory(c.Category); !ok {
		return ReasonMissingCategory
	}

	p, err := ParsePrice(c.Price)
	if err != nil || p < 0 {
		return ReasonNegativePrice
	}

	return ""
}

// IsDuplicate reports whether name normalizes to the name of any existing item.
func IsDuplicate(name string, existing []model.Item) bool {
	norm := model.NormalizeName(name)
	for _, it := range existing {
		if model.NormalizeName(it.Name) == norm {
			return true
		}
	}
	return false
}

// ParsePrice converts a raw price field to a number. Surrounding whitespace
// is ignored and an empty field reads as 0.
func ParsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}

	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}

	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}

	return p, nil
}
