package main

import (
	"context"
	"fmt"

	"contact_intake/internal/app"
	"contact_intake/internal/submission"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runCheckConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "admin email:    %s\n", cfg.AdminEmail)
	fmt.Fprintf(out, "allow origin:   %s\n", cfg.AllowOrigin)
	fmt.Fprintf(out, "honeypot field: %s\n", cfg.HoneypotField)
	fmt.Fprintf(out, "listen:         %s%s\n", cfg.Server.Addr, cfg.Server.Path)
	fmt.Fprintf(out, "trust proxy:    %t\n", cfg.Server.TrustProxy)
	fmt.Fprintf(out, "storage:        active=%t sheet=%q tab=%q\n", cfg.StorageActive(), cfg.Storage.SheetID, cfg.Storage.SheetName)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func runSendTest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resilience, err := cfg.Resilience()
	if err != nil {
		return err
	}

	notifier, err := app.InitializeNotifier(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	sample := submission.Cleaned{
		Name:    "Test User",
		Email:   "test@example.com",
		Subject: "Test Subject",
		Message: "This is a test message from the contact form handler.",
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), resilience.Notify.Timeout)
	defer cancel()

	if err := notifier.Notify(ctx, sample); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}

	log.Info().Str("admin_email", cfg.AdminEmail).Msg("Test notification sent")
	return nil
}
