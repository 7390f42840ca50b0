package cmd

import (
	"fmt"
	"strconv"

	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/internal/datastore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runMigration migrates the configured store and reports the version change.
func runMigration(cmd *cobra.Command, targetVersion int) {
	res, err := datastore.Migrate(rootCtx, cfg.Backend, cfg.DBConnect, targetVersion)
	if err != nil {
		contract.LogFatal("Failed to run migrations", err)
	}
	logger.Info("migration finished",
		zap.String("backend", string(cfg.Backend)),
		zap.Uint("from", res.From),
		zap.Uint("to", res.To),
		zap.Bool("changed", res.Changed))
	if !res.Changed {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema already at version %d\n", res.To)
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s schema from version %d to %d\n", cfg.Backend, res.From, res.To)
}

// migrateCmd manages the reference activity schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the reference activity schema",
	Long: `Install, upgrade or remove the reference schema (identities, projects and
source control tables) on a sqlite, mysql or postgresql database.

The schema matches what the metric queries read, which makes it useful for
demos, tests and new deployments.

Examples:
  # Install the latest schema
  grimoire migrate up --db-connect activity.db

  # Move to a specific version
  grimoire migrate to 1 --backend postgresql --db-connect "host=localhost dbname=grimoire"

  # Remove every table
  grimoire migrate down --db-connect activity.db`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var migrateUpCmd = &cobra.Command{
	Use:     "up",
	Short:   "Migrate to the latest schema version",
	PreRunE: storeSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		runMigration(cmd, -1)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:     "down",
	Short:   "Roll back every migration",
	PreRunE: storeSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		runMigration(cmd, 0)
	},
}

var migrateToCmd = &cobra.Command{
	Use:     "to VERSION",
	Short:   "Migrate up or down to a specific schema version",
	Args:    cobra.ExactArgs(1),
	PreRunE: storeSetup,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version %q: must be a non-negative integer", args[0])
		}
		runMigration(cmd, v)
		return nil
	},
}
