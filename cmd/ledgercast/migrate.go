package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgercast/ledgercast/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.SuccessStyle.Render("✓ Database schema is up to date"))
			return nil
		},
	}
}
