package processor

import (
	"cmp"
	"slices"
	"strings"

	"inventory-service/internal/domain"
)

// MatchesSearch reports whether term occurs, ignoring case, in the title,
// description, category or brand of p. A blank term matches everything.
func MatchesSearch(p domain.Product, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{p.Title, p.Description, p.Category, p.Brand} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// FilterBySearch keeps the products matching term.
func FilterBySearch(products []domain.Product, term string) []domain.Product {
	if strings.TrimSpace(term) == "" {
		return slices.Clone(products)
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if MatchesSearch(p, term) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByCategories keeps the products whose category is listed.
// An empty list keeps everything.
func FilterByCategories(products []domain.Product, categories []string) []domain.Product {
	if len(categories) == 0 {
		return slices.Clone(products)
	}
	allowed := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if _, ok := allowed[p.Category]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts returns a stably sorted copy. Price and stock compare
// numerically and title compares case-insensitively. Desc reverses the
// comparison, so ties keep their input order either way. SortByNone keeps the
// input order.
func SortProducts(products []domain.Product, field domain.SortField, order domain.SortOrder) []domain.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []domain.Product{}
	}

	var compare func(a, b domain.Product) int
	switch field {
	case domain.SortByPrice:
		compare = func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortByStock:
		compare = func(a, b domain.Product) int { return cmp.Compare(a.Stock, b.Stock) }
	case domain.SortByTitle:
		compare = func(a, b domain.Product) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	default:
		return out
	}

	if order == domain.SortDesc {
		slices.SortStableFunc(out, func(a, b domain.Product) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}
	return out
}

// Paginate cuts one page out of products. Total is the full input length so
// a page past the end yields no products but a non-zero total.
func Paginate(products []domain.Product, page domain.Pagination) domain.Result {
	skip := page.Skip()
	start := min(skip, len(products))
	end := len(products)
	if page.Limit > 0 {
		end = start + min(page.Limit, len(products)-start)
	}
	items := make([]domain.Product, end-start)
	copy(items, products[start:end])
	return domain.Result{
		Products: items,
		Total:    len(products),
		Skip:     skip,
		Limit:    page.Limit,
	}
}
