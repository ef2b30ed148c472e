package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"inventory-service/internal/api"
)

type listOptions struct {
	Search     string
	Categories []string
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

// params renders the flags as a query string so the CLI parses them
// exactly like the HTTP API does.
func (o *listOptions) params() map[string][]string {
	return map[string][]string{
		"search":    {o.Search},
		"category":  o.Categories,
		"sortBy":    {o.SortBy},
		"sortOrder": {o.SortOrder},
		"page":      {strconv.Itoa(o.Page)},
		"limit":     {strconv.Itoa(o.Limit)},
	}
}

func newProductsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Query the merged product catalog",
	}
	cmd.AddCommand(newProductsListCommand(root))
	return cmd
}

func newProductsListCommand(root *rootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of products after search, filter and sort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), root, nil)
			if err != nil {
				return err
			}
			defer a.close()

			filters, page := api.ParseListParams(opts.params())
			res, err := a.service.ListProducts(cmd.Context(), filters, page)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if root.Output == "json" {
				return writeJSON(out, api.ListResponse{
					Products:   res.Products,
					Total:      res.Total,
					Skip:       res.Skip,
					Limit:      res.Limit,
					Page:       page.Page,
					TotalPages: res.TotalPages(),
				})
			}
			if err := writeProductTable(out, res.Products); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "\npage %d of %d, %d products\n", page.Page, res.TotalPages(), res.Total)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "case-insensitive search over title, description, category and brand")
	cmd.Flags().StringSliceVar(&opts.Categories, "category", nil, "category slug to include (repeatable)")
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "", "sort field (title|price|stock)")
	cmd.Flags().StringVar(&opts.SortOrder, "sort-order", "", "sort order (asc|desc)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "page size")

	return cmd
}
