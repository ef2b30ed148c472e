package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStorageCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Manage locally persisted products and edits",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every locally created product and inline edit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), root, nil)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.service.ClearStorage(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %s storage\n", a.cfg.Storage.Driver)
			return err
		},
	})
	return cmd
}
