package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"contact_intake/internal/notifications"
	"contact_intake/internal/sheets"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	// log.Ctx falls back to the global logger outside of HTTP requests
	zerolog.DefaultContextLogger = &log.Logger

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// InitializeNotifier creates the Gmail notification client.
func InitializeNotifier(ctx context.Context, cfg Config) (*notifications.Client, error) {
	log.Debug().
		Str("admin_email", cfg.AdminEmail).
		Str("delegated_user", cfg.Mail.DelegatedUser).
		Msg("Initializing notification client")

	opts, err := gmailOptions(ctx, cfg.Mail)
	if err != nil {
		return nil, err
	}

	return notifications.NewClient(ctx, notifications.Settings{
		AdminEmail:    cfg.AdminEmail,
		SenderName:    cfg.Mail.SenderName,
		SenderAddress: cfg.Mail.SenderAddress,
	}, opts...)
}

// A service account can only send mail by impersonating a Workspace user, so
// a delegated user switches to a JWT token source with that subject.
func gmailOptions(ctx context.Context, mail MailConfig) ([]option.ClientOption, error) {
	if mail.DelegatedUser == "" {
		return []option.ClientOption{
			option.WithCredentialsFile(mail.CredentialsFile),
			option.WithScopes(gmail.GmailSendScope),
		}, nil
	}

	data, err := os.ReadFile(mail.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	conf.Subject = mail.DelegatedUser

	return []option.ClientOption{option.WithTokenSource(conf.TokenSource(ctx))}, nil
}

// InitializeAppender creates the Sheets-backed storage appender. When storage
// is not active the appender has no client and every append is a no-op.
func InitializeAppender(ctx context.Context, cfg Config) (*sheets.Appender, error) {
	settings := sheets.Settings{
		Enabled: cfg.Storage.Enabled,
		Target: sheets.Target{
			SpreadsheetID: cfg.Storage.SheetID,
			Tab:           cfg.Storage.SheetName,
		},
		RecordSource: cfg.Storage.RecordSource,
		Location:     cfg.Location(),
	}

	if !settings.Active() {
		log.Info().Bool("enabled", cfg.Storage.Enabled).Msg("Submission storage disabled")
		return sheets.NewAppender(nil, settings), nil
	}

	log.Debug().
		Str("sheet_id", cfg.Storage.SheetID).
		Str("sheet_name", cfg.Storage.SheetName).
		Msg("Initializing sheets client")

	sheetsClient, err := sheets.NewClient(ctx,
		option.WithCredentialsFile(cfg.Storage.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}

	return sheets.NewAppender(sheetsClient, settings), nil
}
