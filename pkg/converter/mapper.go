// Package converter turns bank feed items into Beancount entries.
package converter

import (
	"errors"
	"maps"
	"slices"
)

// DefaultCategory is the mapping key used for unmapped spending categories.
const DefaultCategory = "DEFAULT"

// ErrNoDefaultCategory is returned when the category mapping has no DEFAULT entry.
var ErrNoDefaultCategory = errors.New("category mapping has no DEFAULT entry")

// Mapper maps spending categories to Beancount accounts.
type Mapper struct {
	categories map[string]string
	fallback   string
}

// NewMapper creates a Mapper. The mapping must contain DefaultCategory.
func NewMapper(categories map[string]string) (*Mapper, error) {
	fallback, ok := categories[DefaultCategory]
	if !ok || fallback == "" {
		return nil, ErrNoDefaultCategory
	}

	return &Mapper{
		categories: maps.Clone(categories),
		fallback:   fallback,
	}, nil
}

// Resolve returns the account for a spending category, falling back to DEFAULT.
func (m *Mapper) Resolve(category string) string {
	if account, ok := m.categories[category]; ok && account != "" {
		return account
	}
	return m.fallback
}

// HasMapping checks if a category has its own mapping.
func (m *Mapper) HasMapping(category string) bool {
	_, ok := m.categories[category]
	return ok && category != DefaultCategory
}

// Categories returns the mapped category codes, sorted.
func (m *Mapper) Categories() []string {
	return slices.Sorted(maps.Keys(m.categories))
}
