package processor

import (
	"inventory-service/internal/domain"
)

// Process runs the whole pipeline: merge, overlay edits, search, category
// filter, sort and paginate. With no sort field the merge order is kept, so
// locally created products stay ahead of remote ones.
func Process(
	remote, local []domain.Product,
	edits map[int64]domain.EditRecord,
	filters domain.Filters,
	page domain.Pagination,
) domain.Result {
	products := Merge(remote, local)
	products = ApplyEdits(products, edits)
	products = FilterBySearch(products, filters.Search)
	products = FilterByCategories(products, filters.SelectedCategories)
	products = SortProducts(products, filters.SortBy, filters.SortOrder)
	return Paginate(products, page)
}
