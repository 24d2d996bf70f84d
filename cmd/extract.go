package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avoronin/servicem8-relay/internal/app"
	"github.com/avoronin/servicem8-relay/internal/logger"
)

var (
	extractCmd = &cobra.Command{
		Use:   "extract",
		Short: "Log in to ServiceM8 and extract session credentials",
		Long: `Opens a browser, logs in to ServiceM8 with the EMAIL and PASSWORD
environment variables, and scrapes the dispatch board for s_auth tokens
and session cookies.

The extracted credentials are written as a JSON array to the record file
(result.json by default). When no tokens are found, an empty array is
written so consumers can tell a fresh empty run from a failed one.

Saved cookies are reused on later runs to skip the login form when the
session is still alive.`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
			}

			app.ExecuteExtractCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	extractCmdFlags := extractCmd.Flags()

	extractCmdFlags.BoolP(
		"server",
		"s",
		false,
		"run the browser headless (same as SERVER_MODE=true).")

	extractCmdFlags.StringP(
		"record",
		"r",
		"",
		"file to write the credential record to.")

	rootCmd.AddCommand(extractCmd)
}
