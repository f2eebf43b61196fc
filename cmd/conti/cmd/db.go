package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"conti/internal/storage"
)

var rollbackSteps int

// dbCmd groups schema maintenance.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database schema maintenance",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		exitOnError(storage.RunMigrations(cfg.SQLiteDBPath), "migration failed")
		printVersion(cfg.SQLiteDBPath)
	},
}

var dbVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(loadConfig().SQLiteDBPath)
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back migrations",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		exitOnError(storage.RollbackMigrations(cfg.SQLiteDBPath, rollbackSteps), "rollback failed")
		printVersion(cfg.SQLiteDBPath)
	},
}

func init() {
	dbRollbackCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
	dbCmd.AddCommand(dbMigrateCmd, dbVersionCmd, dbRollbackCmd)
}

func printVersion(path string) {
	version, dirty, err := storage.MigrationVersion(path)
	exitOnError(err, "failed to read schema version")
	fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)
}
