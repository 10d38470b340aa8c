package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"contact_intake/internal/config"
	"contact_intake/internal/notifications"
	"contact_intake/internal/submission"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Config is the static, per-deployment configuration.
type Config struct {
	AdminEmail    string        `toml:"admin_email"`
	AllowOrigin   string        `toml:"allow_origin"`
	HoneypotField string        `toml:"honeypot_field"`
	Server        ServerConfig  `toml:"server"`
	Mail          MailConfig    `toml:"mail"`
	Storage       StorageConfig `toml:"storage"`
	Timeouts      TimeoutConfig `toml:"timeouts"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	Path string `toml:"path"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Leave it off unless a proxy in front overwrites those headers.
	TrustProxy bool `toml:"trust_proxy"`
}

type MailConfig struct {
	SenderName    string `toml:"sender_name"`
	SenderAddress string `toml:"sender_address"`
	// DelegatedUser is the Workspace account a service account impersonates.
	DelegatedUser   string `toml:"delegated_user"`
	CredentialsFile string `toml:"credentials_file"`
}

type StorageConfig struct {
	Enabled         bool   `toml:"enabled"`
	SheetID         string `toml:"sheet_id"`
	SheetName       string `toml:"sheet_name"`
	RecordSource    bool   `toml:"record_source"`
	Timezone        string `toml:"timezone"`
	CredentialsFile string `toml:"credentials_file"`
}

// TimeoutConfig uses Go duration strings ("15s") so it reads naturally in TOML.
type TimeoutConfig struct {
	Notify         string `toml:"notify"`
	Storage        string `toml:"storage"`
	StorageRetries int    `toml:"storage_retries"`
}

// DefaultConfig returns the settings used when neither a file nor the
// environment overrides them.
func DefaultConfig() Config {
	return Config{
		AllowOrigin:   "*",
		HoneypotField: submission.DefaultHoneypotField,
		Server: ServerConfig{
			Addr: ":8080",
			Path: "/contact",
		},
		Mail: MailConfig{
			SenderName:      notifications.DefaultSenderName,
			CredentialsFile: "credentials.json",
		},
		Storage: StorageConfig{
			Enabled:         true,
			SheetName:       "Contact Submissions",
			Timezone:        "UTC",
			CredentialsFile: "credentials.json",
		},
		Timeouts: TimeoutConfig{
			Notify:  config.DefaultResilienceConfig.Notify.Timeout.String(),
			Storage: config.DefaultResilienceConfig.Storage.Timeout.String(),
		},
	}
}

// LoadConfig builds the configuration from defaults, then the TOML file at
// path (if any), then environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.AdminEmail = GetEnvWithDefault("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AllowOrigin = GetEnvWithDefault("ALLOW_ORIGIN", cfg.AllowOrigin)
	cfg.HoneypotField = GetEnvWithDefault("HONEYPOT_FIELD", cfg.HoneypotField)

	cfg.Server.Addr = GetEnvWithDefault("LISTEN_ADDR", cfg.Server.Addr)
	cfg.Server.Path = GetEnvWithDefault("CONTACT_PATH", cfg.Server.Path)
	cfg.Server.TrustProxy = getEnvBool("TRUST_PROXY", cfg.Server.TrustProxy)

	cfg.Mail.SenderName = GetEnvWithDefault("MAIL_SENDER_NAME", cfg.Mail.SenderName)
	cfg.Mail.SenderAddress = GetEnvWithDefault("MAIL_SENDER_ADDRESS", cfg.Mail.SenderAddress)
	cfg.Mail.DelegatedUser = GetEnvWithDefault("MAIL_DELEGATED_USER", cfg.Mail.DelegatedUser)
	cfg.Mail.CredentialsFile = GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", cfg.Mail.CredentialsFile)

	cfg.Storage.Enabled = getEnvBool("ENABLE_STORAGE", cfg.Storage.Enabled)
	cfg.Storage.SheetID = GetEnvWithDefault("SHEET_ID", cfg.Storage.SheetID)
	cfg.Storage.SheetName = GetEnvWithDefault("SHEET_NAME", cfg.Storage.SheetName)
	cfg.Storage.RecordSource = getEnvBool("SHEET_RECORD_SOURCE", cfg.Storage.RecordSource)
	cfg.Storage.Timezone = GetEnvWithDefault("SHEET_TIMEZONE", cfg.Storage.Timezone)
	cfg.Storage.CredentialsFile = GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", cfg.Storage.CredentialsFile)

	cfg.Timeouts.Notify = GetEnvWithDefault("NOTIFY_TIMEOUT", cfg.Timeouts.Notify)
	cfg.Timeouts.Storage = GetEnvWithDefault("STORAGE_TIMEOUT", cfg.Timeouts.Storage)
	if raw := os.Getenv("STORAGE_RETRIES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.Timeouts.StorageRetries = n
		} else {
			log.Warn().Str("value", raw).Msg("Ignoring invalid STORAGE_RETRIES")
		}
	}
}

// StorageActive reports whether submissions will be written to the sheet.
func (c Config) StorageActive() bool {
	return c.Storage.Enabled && c.Storage.SheetID != ""
}

// AllowOrigins splits the comma-separated allow-origin setting.
func (c Config) AllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Location resolves the storage timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Storage.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Storage.Timezone).Msg("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

// Resilience converts the timeout settings into call bounds.
func (c Config) Resilience() (config.ResilienceConfig, error) {
	res := config.DefaultResilienceConfig

	notify, err := parseDuration("timeouts.notify", c.Timeouts.Notify)
	if err != nil {
		return res, err
	}
	storage, err := parseDuration("timeouts.storage", c.Timeouts.Storage)
	if err != nil {
		return res, err
	}

	res.Notify.Timeout = notify
	res.Storage.Timeout = storage
	res.Storage.MaxRetries = c.Timeouts.StorageRetries
	return res.Normalize(), nil
}

func parseDuration(name, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return d, nil
}

// Validate reports configuration errors and returns non-fatal warnings.
func (c Config) Validate() (warnings []string, err error) {
	var errs []error

	if c.AdminEmail == "" || !strings.Contains(c.AdminEmail, "@") {
		errs = append(errs, errors.New("ADMIN_EMAIL must be a valid email address"))
	}
	if strings.TrimSpace(c.AllowOrigin) == "" {
		errs = append(errs, errors.New("ALLOW_ORIGIN cannot be empty"))
	}
	if c.Storage.SheetID != "" && c.Storage.SheetName == "" {
		errs = append(errs, errors.New("SHEET_NAME is required when SHEET_ID is provided"))
	}
	if c.HoneypotField == "" {
		warnings = append(warnings, "HONEYPOT_FIELD is empty; spam filtering is disabled")
	}
	if c.Storage.RecordSource && !c.Server.TrustProxy {
		warnings = append(warnings, "SHEET_RECORD_SOURCE records the direct peer address; set TRUST_PROXY behind a reverse proxy")
	}
	if c.Storage.Enabled && c.Storage.SheetID == "" {
		warnings = append(warnings, "ENABLE_STORAGE is true but SHEET_ID is empty; submissions will not be stored")
	}
	if _, rerr := c.Resilience(); rerr != nil {
		errs = append(errs, rerr)
	}

	return warnings, errors.Join(errs...)
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Ignoring invalid boolean")
		return defaultValue
	}
	return v
}
