// Package processor turns the raw catalog plus local state into the product
// list a caller sees. Every function is pure: inputs are never mutated and
// identical inputs give identical outputs.
package processor

import (
	"slices"

	"inventory-service/internal/domain"
)

// Merge combines local and remote products. Local products come first in
// their stored order, followed by remote products whose id is not already
// taken. A local product wins on id collision, and within one source the
// first occurrence of an id wins.
func Merge(remote, local []domain.Product) []domain.Product {
	seen := make(map[int64]struct{}, len(remote)+len(local))
	merged := make([]domain.Product, 0, len(remote)+len(local))
	for _, src := range [][]domain.Product{local, remote} {
		for _, p := range src {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, clone(p))
		}
	}
	return merged
}

// ApplyOverlay returns base with the fields present in edit replaced.
// A stock edit also recomputes the availability label.
func ApplyOverlay(base domain.Product, edit domain.EditRecord) domain.Product {
	p := clone(base)
	if edit.Title != nil {
		p.Title = *edit.Title
	}
	if edit.Price != nil {
		p.Price = *edit.Price
	}
	if edit.Stock != nil {
		p.Stock = *edit.Stock
		p.AvailabilityStatus = domain.AvailabilityFor(p.Stock)
	}
	return p
}

// ApplyEdits overlays the edit recorded for each product id, if any.
func ApplyEdits(products []domain.Product, edits map[int64]domain.EditRecord) []domain.Product {
	out := make([]domain.Product, len(products))
	for i, p := range products {
		if edit, ok := edits[p.ID]; ok {
			out[i] = ApplyOverlay(p, edit)
			continue
		}
		out[i] = p
	}
	return out
}

// clone copies the slices a caller could otherwise mutate through the result.
func clone(p domain.Product) domain.Product {
	p.Tags = slices.Clone(p.Tags)
	p.Reviews = slices.Clone(p.Reviews)
	p.Images = slices.Clone(p.Images)
	return p
}
