package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/internal/session"
	"github.com/spf13/cobra"
)

var (
	dashboardRegions []string
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the organization dashboard",
	Long: `Load and show the whole dashboard: overview, members and databases for
everyone, plus invitations and cost analytics for owners.

A region that fails to load is reported in place; the rest of the
dashboard is still shown. Use --region to show only some regions:
  ` + regionNames(),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := parseRegions(dashboardRegions)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			err := internal.ShowProgress(ctx, "Loading dashboard", func() error {
				return a.orch.Boot(ctx)
			})
			if err := bootError(err); err != nil {
				// A failed overview is still shown before the error.
				_ = a.terminal.Flush(dashboard.RegionOverview)
				return err
			}

			a.saveSnapshot()
			return a.terminal.Flush(regions...)
		})
	},
}

// bootError maps session failures to user-facing errors.
func bootError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrExpired):
		return fmt.Errorf("session expired: run `orgdash login` to sign in again")
	case errors.Is(err, session.ErrNoSession):
		return errNotLoggedIn
	}
	return err
}

func parseRegions(names []string) ([]dashboard.Region, error) {
	regions := make([]dashboard.Region, 0, len(names))
	for _, name := range names {
		r, ok := dashboard.ParseRegion(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown region %q (available: %s)", name, regionNames())
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func regionNames() string {
	names := make([]string, len(dashboard.AllRegions))
	for i, r := range dashboard.AllRegions {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringSliceVarP(&dashboardRegions, "region", "r", nil, "Only show these regions")
}
