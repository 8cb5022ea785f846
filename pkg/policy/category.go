package policy

import (
	"fmt"
	"strings"
)

// Category is the role an entity plays in a bid.
type Category string

const (
	Manufacturer  Category = "Manufacturer"
	Supplier      Category = "Supplier"
	Subcontractor Category = "Subcontractor"
)

// Categories lists every category in display order.
var Categories = []Category{Manufacturer, Supplier, Subcontractor}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, s)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Manufacturer, Supplier, Subcontractor:
		return true
	}
	return false
}

// Normalize returns the comparison key for name within this category.
// Names are trimmed and lower-cased with inner whitespace collapsed.
// A manufacturer's key is its first word only, so "Acme Industrial Ltd"
// matches a list entry "Acme" but never one for "Acme Tools".
func (c Category) Normalize(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	if c == Manufacturer {
		return fields[0]
	}
	return strings.Join(fields, " ")
}
