package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/gateway"
	"github.com/iksnae/orgdash/internal/permission"
	"github.com/iksnae/orgdash/internal/session"
	"github.com/spf13/cobra"
)

var (
	statusDetails bool
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local session and check it with the server",
	Long: `Check the state of orgdash by verifying:
  • Configuration
  • Local session and its expiry
  • Session validity on the server
  • Permissions granted by the role

This command is useful for debugging sign-in problems.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		return withApp(cmd, func(ctx context.Context, a *app) error {
			fmt.Fprintln(out, sectionStyle.Render("Organization Dashboard Status"))
			fmt.Fprintln(out)

			// Step 1: Configuration
			fmt.Fprintln(out, infoStyle.Render("Step 1: Configuration..."))
			fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
			fmt.Fprintf(out, "   Backend: %s\n", cfg.BaseURL)
			if statusDetails {
				fmt.Fprintf(out, "   Session store: %s\n", cfg.SessionDB)
				fmt.Fprintf(out, "   Cache: %s\n", cfg.CacheDir)
				fmt.Fprintf(out, "   Locale: %s\n", a.format.Locale())
			}
			fmt.Fprintln(out)

			// Step 2: Local session
			fmt.Fprintln(out, infoStyle.Render("Step 2: Local session..."))
			sess, err := a.store.Load()
			switch {
			case errors.Is(err, session.ErrExpired):
				fmt.Fprintln(out, warningStyle.Render("⚠️  Session expired and was cleared"))
				fmt.Fprintln(out, "   Run `orgdash login` to sign in again")
				return nil
			case errors.Is(err, session.ErrNoSession):
				fmt.Fprintln(out, warningStyle.Render("⚠️  Not logged in"))
				fmt.Fprintln(out, "   Run `orgdash login` to sign in")
				return nil
			case err != nil:
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to read session:"), err)
				return err
			}
			expiry := sess.IssuedAt.Add(a.store.TTL())
			fmt.Fprintln(out, successStyle.Render("✅ Session found"))
			fmt.Fprintf(out, "   Organization: %s\n", sess.OrganizationName)
			fmt.Fprintf(out, "   Role: %s\n", sess.Role.Label())
			fmt.Fprintf(out, "   Expires: %s (%s)\n", expiry.Format(time.RFC822), humanize.Time(expiry))
			if statusDetails {
				fmt.Fprintf(out, "   Organization ID: %s\n", sess.OrganizationID)
				fmt.Fprintf(out, "   User ID: %s\n", sess.UserID)
			}
			fmt.Fprintln(out)

			// Step 3: Server verification
			fmt.Fprintln(out, infoStyle.Render("Step 3: Verifying with the server..."))
			v, err := a.gateway.Verify(ctx)
			switch {
			case errors.Is(err, gateway.ErrSessionExpired):
				fmt.Fprintln(out, errorStyle.Render("❌ The server rejected the session"))
				return err
			case err != nil:
				fmt.Fprintln(out, warningStyle.Render("⚠️  Could not verify the session:"), err)
			case !v.Valid:
				a.store.Expire(sess.Token)
				fmt.Fprintln(out, errorStyle.Render("❌ The server reports the session as invalid"))
				return gateway.ErrSessionExpired
			default:
				fmt.Fprintln(out, successStyle.Render("✅ Session is valid"))
				if statusDetails && v.Username != "" {
					fmt.Fprintf(out, "   Username: %s\n", v.Username)
				}
			}
			fmt.Fprintln(out)

			// Step 4: Permissions
			fmt.Fprintln(out, infoStyle.Render("Step 4: Permissions..."))
			set := permission.Derive(sess.Role)
			for _, p := range []struct {
				label string
				ok    bool
			}{
				{"Manage members", set.CanManageMembers},
				{"Manage databases", set.CanManageDatabases},
				{"Manage invitations", set.CanManageInvitations},
				{"View costs", set.CanViewCosts},
			} {
				mark := errorStyle.Render("✗")
				if p.ok {
					mark = successStyle.Render("✓")
				}
				fmt.Fprintf(out, "   %s %s\n", mark, p.label)
			}
			if !set.Any() {
				internal.LogDebug("Role %q grants no management permissions", sess.Role)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusDetails, "details", "d", false, "Show detailed diagnostic information")
}
