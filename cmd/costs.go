package cmd

import (
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/spf13/cobra"
)

// costsCmd represents the costs command
var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show cost analytics (owners only)",
	Long: `Show the cost overview, costs by model and by stage, the input/output
split and per-user costs. Each view loads independently.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRegion(cmd, dashboard.CostRegions...)
	},
}

func init() {
	rootCmd.AddCommand(costsCmd)
}
