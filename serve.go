package main

import (
	"os"
	"os/signal"
	"syscall"

	"contact_intake/internal/app"
	"contact_intake/internal/intake"
	"contact_intake/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resilience, err := cfg.Resilience()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, err := app.InitializeNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	appender, err := app.InitializeAppender(ctx, cfg)
	if err != nil {
		return err
	}

	orchestrator := intake.New(notifier, appender, intake.Options{
		HoneypotField: cfg.HoneypotField,
		Resilience:    resilience,
	})

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		Path:         cfg.Server.Path,
		AllowOrigins: cfg.AllowOrigins(),
		TrustProxy:   cfg.Server.TrustProxy,
	}, orchestrator, log.Logger)

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("path", cfg.Server.Path).
		Bool("storage", cfg.StorageActive()).
		Msg("Starting contact form intake")

	err = srv.Run(ctx)

	sent, failed := notifier.GetMetrics()
	log.Info().Int64("sent", sent).Int64("failed", failed).Msg("Notification totals")

	return err
}
