package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avoronin/servicem8-relay/internal/app"
	"github.com/avoronin/servicem8-relay/internal/logger"
)

var (
	fingerprintCmd = &cobra.Command{
		Use:   "fingerprint",
		Short: "Capture this machine's device fingerprint",
		Long: `Opens a visible browser and reads the machine's real device identity:
user agent, platform, languages, timezone, screen resolution, and WebGL
renderer details.

The fingerprint is saved to a file (device_fingerprint.json by default)
and applied to later headless extraction runs so they present the same
identity as a real session from this machine.`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
			}

			app.ExecuteFingerprintCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(fingerprintCmd)
}
