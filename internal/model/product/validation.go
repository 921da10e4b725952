package product

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is the sentinel matched by every *ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid product")

// Issue is one rejected field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError is returned by the stores when the fields would persist an
// invalid record. Nothing is written when it is returned.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Message)
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalid) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Check rejects an empty name, a negative stock quantity and any price that
// cannot be stored exactly: negative, finer than a cent, or above MaxPrice.
func (f Fields) Check() error {
	var issues []Issue

	if strings.TrimSpace(f.Name) == "" {
		issues = append(issues, Issue{Field: "name", Message: "is required"})
	}
	switch {
	case f.Price.IsNegative():
		issues = append(issues, Issue{Field: "price", Message: "must not be negative"})
	case !f.Price.Equal(f.Price.Truncate(PriceScale)):
		issues = append(issues, Issue{Field: "price", Message: fmt.Sprintf("must have at most %d decimal places", PriceScale)})
	case f.Price.GreaterThan(MaxPrice):
		issues = append(issues, Issue{Field: "price", Message: "must not exceed " + MaxPrice.StringFixed(PriceScale)})
	}
	if f.StockQuantity < 0 {
		issues = append(issues, Issue{Field: "stockQuantity", Message: "must not be negative"})
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
