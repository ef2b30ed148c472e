package query

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"inventory-service/internal/domain"
)

// entry is one cached remote resource with the time it was fetched.
type entry[T any] struct {
	value     T
	fetchedAt time.Time
	loaded    bool
}

func (e entry[T]) fresh(now time.Time, staleTime time.Duration) bool {
	return e.loaded && now.Sub(e.fetchedAt) < staleTime
}

// Normalize returns filters and pagination in canonical form: trimmed search,
// sorted unique categories, asc as the order when a sort field is set and no
// order when it is not, and a page and limit inside their bounds.
func Normalize(filters domain.Filters, page domain.Pagination) (domain.Filters, domain.Pagination) {
	filters.Search = strings.TrimSpace(filters.Search)

	cats := make([]string, 0, len(filters.SelectedCategories))
	for _, c := range filters.SelectedCategories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	slices.Sort(cats)
	filters.SelectedCategories = slices.Compact(cats)

	filters.SortBy = domain.ParseSortField(string(filters.SortBy))
	filters.SortOrder = domain.ParseSortOrder(string(filters.SortOrder))
	switch {
	case filters.SortBy == domain.SortByNone:
		filters.SortOrder = ""
	case filters.SortOrder == "":
		filters.SortOrder = domain.SortAsc
	}

	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = DefaultLimit
	}
	if page.Limit > MaxLimit {
		page.Limit = MaxLimit
	}
	return filters, page
}

// resultKey hashes normalized filters and pagination into a cache key.
func resultKey(filters domain.Filters, page domain.Pagination) uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.WriteString("\x00")
	}
	write(strconv.Itoa(page.Page))
	write(strconv.Itoa(page.Limit))
	write(strings.ToLower(filters.Search))
	write(string(filters.SortBy))
	write(string(filters.SortOrder))
	for _, c := range filters.SelectedCategories {
		write(c)
	}
	return d.Sum64()
}
