package main

import (
	"strings"

	"github.com/spf13/cobra"

	"inventory-service/internal/domain"
)

// newRemoteCommand queries the remote catalog directly, bypassing caches
// and local data.
func newRemoteCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query the remote catalog without caching or local data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "List remote categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), root, nil)
			if err != nil {
				return err
			}
			defer a.close()

			categories, err := a.remote.FetchCategories(cmd.Context())
			if err != nil {
				return err
			}
			if root.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), categories)
			}
			return writeCategoryTable(cmd.OutOrStdout(), categories)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "category <slug>...",
		Short: "List remote products in one or more categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), root, nil)
			if err != nil {
				return err
			}
			defer a.close()

			products, err := a.remote.FetchProductsByCategories(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printProducts(cmd, root, products)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search remote products",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), root, nil)
			if err != nil {
				return err
			}
			defer a.close()

			products, err := a.remote.SearchProducts(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printProducts(cmd, root, products)
		},
	})

	return cmd
}

func printProducts(cmd *cobra.Command, root *rootOptions, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	if root.Output == "json" {
		return writeJSON(cmd.OutOrStdout(), products)
	}
	return writeProductTable(cmd.OutOrStdout(), products)
}
