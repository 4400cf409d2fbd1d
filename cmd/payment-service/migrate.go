package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finlane/payment-service/config"
	"github.com/finlane/payment-service/store/sqlite"
)

func migrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}

				dbPath = cfg.DBPath
			}

			store, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", dbPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (defaults to DB_PATH)")

	return cmd
}
