package main

import (
	"os"

	"contact_intake/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	app.SetupEnvironment()

	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "contactform",
		Short:         "Contact form intake service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", app.GetEnvWithDefault("CONTACT_CONFIG", ""), "path to a TOML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP intake endpoint",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate the configuration and print it",
			RunE:  runCheckConfig,
		},
		&cobra.Command{
			Use:   "send-test",
			Short: "Send a test notification to the admin address",
			RunE:  runSendTest,
		},
	)
	return root
}

func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	return cfg, err
}
