package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avoronin/servicem8-relay/internal/app"
	"github.com/avoronin/servicem8-relay/internal/logger"
)

var (
	forwardCmd = &cobra.Command{
		Use:   "forward",
		Short: "Forward the extracted credential record to the webhook",
		Long: `Reads the credential record written by 'extract' and delivers it to the
configured webhook endpoint with a single POST request.

The payload wraps the record with a timestamp, the endpoint count, and a
run identifier. Delivery is attempted exactly once; a non-2xx answer is
treated as a failure.`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
			}

			app.ExecuteForwardCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	forwardCmdFlags := forwardCmd.Flags()

	forwardCmdFlags.StringP(
		"webhook-url",
		"w",
		"",
		"webhook endpoint to deliver the credential record to.")

	forwardCmdFlags.StringP(
		"record",
		"r",
		"",
		"file to read the credential record from.")

	rootCmd.AddCommand(forwardCmd)
}
