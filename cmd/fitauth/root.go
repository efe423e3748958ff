package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
	tabID      string
)

var rootCmd = &cobra.Command{
	Use:   "fitauth",
	Short: "FitLife authentication engine tooling",
	Long: `fitauth runs the FitLife authentication engine outside the browser.

Configuration is read from an optional .env file, an optional config file and
FITAUTH_* environment variables, e.g. FITAUTH_REMOTE_BASE_URL. With
FITAUTH_REDIS_ADDR unset every command runs on an in-process Redis and nothing
survives the process.
`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&tabID, "tab", "cli", "tab identity; commands sharing a tab share its session")
}
