// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect extraction catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate a catalog file, or the configured catalog when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Catalog.Path
			if len(args) == 1 {
				path = args[0]
			}
			catalog, err := loadCatalog(path)
			if err != nil {
				return err
			}
			registry, medicines, err := catalog.Build()
			if err != nil {
				return err
			}

			name := path
			if name == "" {
				name = "embedded catalog"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d fields, %d medicines)\n",
				name, registry.Len(), len(medicines.Names()))
			return err
		},
	})
	return cmd
}
