package cmd

import (
	"context"

	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/spf13/cobra"
)

// databasesCmd represents the databases command
var databasesCmd = &cobra.Command{
	Use:     "databases",
	Aliases: []string{"db"},
	Short:   "List and manage database connections",
}

var databasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered database connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRegion(cmd, dashboard.RegionDatabases)
	},
}

var databasesCreateCmd = &cobra.Command{
	Use:   "create <name> <connection-string>",
	Short: "Register a database connection (owners only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, dashboard.RegionDatabases, func(ctx context.Context, o *dashboard.Orchestrator) error {
			return o.CreateDatabase(ctx, args[0], args[1])
		})
	},
}

var databasesRemoveCmd = &cobra.Command{
	Use:   "remove <connection-id>",
	Short: "Remove a database connection (owners only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, dashboard.RegionDatabases, func(ctx context.Context, o *dashboard.Orchestrator) error {
			return o.RemoveDatabase(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(databasesCmd)
	databasesCmd.AddCommand(databasesListCmd, databasesCreateCmd, databasesRemoveCmd)
}
