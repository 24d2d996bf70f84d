package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/avoronin/servicem8-relay/internal/config"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/version"
)

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "servicem8-relay",
		Short: "Extract ServiceM8 session credentials and relay them to a webhook.",
		Long: `ServiceM8 Relay drives a real browser through the ServiceM8 login,
scrapes the session's s_auth tokens and cookies from the dispatch board,
and writes them to a credential record that can be forwarded to a webhook.

Credentials are read from the EMAIL and PASSWORD environment variables.
Set SERVER_MODE=true to run the browser headless on a machine without a display.

Typical usage:
  servicem8-relay extract
  servicem8-relay forward`,
		Version:          version.Full(),
		PersistentPreRun: initConfig,
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	logger.SetLevel(appConfig.ParsedLogLevel)
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flag := flags.Lookup("server"); flag != nil && flag.Changed {
		cfg.ServerMode, _ = flags.GetBool("server")
	}

	if flag := flags.Lookup("record"); flag != nil && flag.Changed {
		cfg.RecordPath, _ = flags.GetString("record")
	}

	if flag := flags.Lookup("webhook-url"); flag != nil && flag.Changed {
		cfg.WebhookURL, _ = flags.GetString("webhook-url")
	}

	return config.ValidateConfig(cfg)
}
