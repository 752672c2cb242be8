package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"projview-api/core"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver != core.StoreDriverPostgres {
			return errors.New("migrate requires STORE_DRIVER=postgres")
		}
		ctx := cmd.Context()
		pool, err := core.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := core.RunMigrations(ctx, pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
