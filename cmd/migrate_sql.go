package cmd

import (
	"github.com/spf13/cobra"
)

// migrateSQLCmd applies the migration plans under db/migrations to the
// device directory database.
var migrateSQLCmd = &cobra.Command{
	Use:   "sql <database-url>",
	Short: "Create the device directory schema and apply migration plans",
	Run:   cmdHandler.Migration.MigrateSQL,
}

func init() {
	migrateCmd.AddCommand(migrateSQLCmd)
}
