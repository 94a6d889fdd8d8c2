package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/orgdash/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	verbose    bool
	configFile string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// v holds defaults, the config file, ORGDASH_* variables and bound flags.
	v   = internal.NewViper()
	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "orgdash",
	Short: "Organization dashboard for the analytics backend",
	Long: `A terminal client for the organization dashboard of the analytics backend.

Sign in once and the session is kept locally for 24 hours. Owners manage
members, databases and invitations and see the cost analytics; members see
the overview, members and databases.

Quick Start:
  orgdash login                          # Sign in
  orgdash dashboard                      # Show the whole dashboard
  orgdash members add 42                 # Add a member (owners)
  orgdash invitations create --max-uses 5
  orgdash export --format md             # Save a report
  orgdash logout`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := internal.LoadConfig(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		if verbose {
			internal.SetVerbose(true)
		} else {
			internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
		}
		internal.LogDebug("Using backend %s", cfg.BaseURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bindFlags binds persistent flags to their config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&configFile, "config", "", "Config file (default ~/.orgdash/config.yaml)")
	flags.String("base-url", "", "Backend base URL")
	flags.String("locale", "", "Locale for numbers and dates (e.g. en, de)")
	flags.String("session-db", "", "Path to the local session database")
	flags.Duration("timeout", 0, "Request timeout")

	bindFlags(v, flags, map[string]string{
		"base-url":   internal.KeyBaseURL,
		"locale":     internal.KeyLocale,
		"session-db": internal.KeySessionDB,
		"timeout":    internal.KeyRequestTimeout,
	})

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
