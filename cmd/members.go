package cmd

import (
	"context"

	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/spf13/cobra"
)

// membersCmd represents the members command
var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List and manage organization members",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List organization members",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRegion(cmd, dashboard.RegionMembers)
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Add a user to the organization (owners only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, dashboard.RegionMembers, func(ctx context.Context, o *dashboard.Orchestrator) error {
			return o.AddMember(ctx, args[0])
		})
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a member from the organization (owners only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, dashboard.RegionMembers, func(ctx context.Context, o *dashboard.Orchestrator) error {
			return o.RemoveMember(ctx, args[0])
		})
	},
}

// showRegion loads regions for the stored session and prints them.
func showRegion(cmd *cobra.Command, regions ...dashboard.Region) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if _, err := a.resume(); err != nil {
			return err
		}
		var firstErr error
		for _, r := range regions {
			if err := a.orch.LoadRegion(ctx, r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := a.terminal.Flush(regions...); err != nil {
			return err
		}
		return firstErr
	})
}

// mutate runs a user action for the stored session and prints the reloaded region.
func mutate(cmd *cobra.Command, region dashboard.Region, action func(ctx context.Context, o *dashboard.Orchestrator) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if _, err := a.resume(); err != nil {
			return err
		}
		if err := action(ctx, a.orch); err != nil {
			return err
		}
		return a.terminal.Flush(region)
	})
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.AddCommand(membersListCmd, membersAddCmd, membersRemoveCmd)
}
