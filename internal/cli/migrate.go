package cli

import (
	"github.com/spf13/cobra"

	"docvault/internal/config"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema for the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := newLogger(cmd.OutOrStdout(), cfg, rootOpts)

			db, err := openDB(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if db == nil {
				log.WithField("store_driver", cfg.StoreDriver).Info("db_migration_skip")
				return nil
			}
			return db.Close()
		},
	}
}
