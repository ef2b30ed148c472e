package domain

import (
	"math"
	"strings"
)

// EditField names a product field that can be edited inline.
type EditField string

const (
	EditFieldTitle EditField = "title"
	EditFieldPrice EditField = "price"
	EditFieldStock EditField = "stock"
)

// ParseEditField returns the field for s, or false if s is not editable.
// "name" is accepted as an alias of title.
func ParseEditField(s string) (EditField, bool) {
	switch f := EditField(strings.ToLower(strings.TrimSpace(s))); f {
	case EditFieldTitle, EditFieldPrice, EditFieldStock:
		return f, true
	case "name":
		return EditFieldTitle, true
	}
	return "", false
}

// EditRecord is a sparse set of overridden fields for one product id.
// Nil pointers mean the field is not overridden.
type EditRecord struct {
	Title *string  `json:"title,omitempty"`
	Price *float64 `json:"price,omitempty"`
	Stock *int     `json:"stock,omitempty"`
}

// IsEmpty reports whether the record overrides nothing.
func (e EditRecord) IsEmpty() bool {
	return e.Title == nil && e.Price == nil && e.Stock == nil
}

// SortField is a field the product list can be ordered by.
type SortField string

const (
	SortByNone  SortField = ""
	SortByPrice SortField = "price"
	SortByStock SortField = "stock"
	SortByTitle SortField = "title"
)

// ParseSortField returns SortByNone for anything that is not a known field.
func ParseSortField(s string) SortField {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortByPrice, SortByStock, SortByTitle:
		return f
	}
	return SortByNone
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder returns the order for s, or "" if s is not asc/desc.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortAsc, SortDesc:
		return o
	}
	return ""
}

// Filters restricts and orders the product list.
// An empty SelectedCategories means no category restriction and a blank
// Search means no text restriction.
type Filters struct {
	Search             string    `json:"search,omitempty"`
	SelectedCategories []string  `json:"selectedCategories"`
	SortBy             SortField `json:"sortBy,omitempty"`
	SortOrder          SortOrder `json:"sortOrder,omitempty"`
}

// Pagination selects one page of results. Page and Limit are 1-based and positive.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Skip returns the number of items before the page. It saturates at
// math.MaxInt instead of wrapping, so a huge page stays past the end.
func (p Pagination) Skip() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Result is one processed page of products.
type Result struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// TotalPages returns the number of pages needed for Total items.
func (r Result) TotalPages() int {
	if r.Total == 0 || r.Limit <= 0 {
		return 0
	}
	return (r.Total + r.Limit - 1) / r.Limit
}
