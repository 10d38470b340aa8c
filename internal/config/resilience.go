package config

import (
	"time"

	"contact_intake/internal/retry"
)

// ResilienceConfig bounds the two external calls made per submission.
type ResilienceConfig struct {
	// Notify is never retried.
	Notify  retry.Config
	Storage retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	Notify: retry.Config{
		Timeout: 15 * time.Second,
	},
	Storage: retry.Config{
		MaxRetries: 0,
		BaseDelay:  1 * time.Second,
		MaxDelay:   5 * time.Second,
		Timeout:    15 * time.Second,
	},
}

// Normalize clamps settings that must not be configurable.
func (c ResilienceConfig) Normalize() ResilienceConfig {
	c.Notify.MaxRetries = 0
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = DefaultResilienceConfig.Notify.Timeout
	}
	if c.Storage.Timeout <= 0 {
		c.Storage.Timeout = DefaultResilienceConfig.Storage.Timeout
	}
	if c.Storage.MaxRetries < 0 {
		c.Storage.MaxRetries = 0
	}
	return c
}
