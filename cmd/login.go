package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/gateway"
	"github.com/iksnae/orgdash/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginUsername string
	loginPassword string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the organization dashboard",
	Long: `Sign in with your username and password.

The session is stored locally and stays valid for 24 hours. Missing
credentials are prompted for; the password is read without echo.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		username := loginUsername
		if username == "" {
			var err error
			if username, err = prompt(cmd.ErrOrStderr(), in, "Username: "); err != nil {
				return err
			}
		}
		password := loginPassword
		if password == "" {
			var err error
			if password, err = promptPassword(cmd, in); err != nil {
				return err
			}
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if prev, err := a.store.Load(); err == nil {
				internal.LogDebug("Replacing existing session for %s", prev.OrganizationName)
				if err := a.store.Invalidate(); err != nil {
					internal.LogWarn("Failed to clear previous session: %v", err)
				}
			}

			var sess session.Session
			err := internal.ShowProgress(ctx, "Signing in", func() error {
				var loginErr error
				sess, loginErr = a.gateway.Login(ctx, username, password)
				return loginErr
			})
			if err != nil {
				var loginErr *gateway.LoginError
				if errors.As(err, &loginErr) {
					return fmt.Errorf("login failed: %s", loginErr.Message)
				}
				return err
			}

			internal.PrintSuccess(fmt.Sprintf("Logged in to %s as %s", sess.OrganizationName, sess.Role.Label()))
			return nil
		})
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the local session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.orch.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			if err := a.cache.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			}
			internal.PrintSuccess("Logged out")
			return nil
		})
	},
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	_, _ = fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads without echo when stdin is a terminal.
func promptPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(cmd.ErrOrStderr(), in, "Password: ")
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(int(f.Fd()))
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
}
