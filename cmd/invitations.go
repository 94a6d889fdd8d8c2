package cmd

import (
	"context"

	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	maxUses int
)

// invitationsCmd represents the invitations command
var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "List and create invitation codes (owners only)",
}

var invitationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invitation codes with their usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRegion(cmd, dashboard.RegionInvitations)
	},
}

var invitationsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invitation code valid for 24 hours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, dashboard.RegionInvitations, func(ctx context.Context, o *dashboard.Orchestrator) error {
			_, err := o.CreateInvitation(ctx, maxUses)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(invitationsCmd)
	invitationsCmd.AddCommand(invitationsListCmd, invitationsCreateCmd)
	invitationsCreateCmd.Flags().IntVarP(&maxUses, "max-uses", "m", 1, "How many times the code can be used")
}
