package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"inventory-service/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeProductTable(w io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tBRAND\tPRICE\tSTOCK\tSTATUS")
	for _, p := range products {
		brand := p.Brand
		if brand == "" {
			brand = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.Title, p.Category, brand,
			strconv.FormatFloat(p.Price, 'f', 2, 64), p.Stock, p.AvailabilityStatus)
	}
	return tw.Flush()
}

func writeCategoryTable(w io.Writer, categories []domain.Category) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\n", c.Slug, c.Name)
	}
	return tw.Flush()
}
