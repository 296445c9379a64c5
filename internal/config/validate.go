package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}
	if c.JWT.Expiry <= 0 {
		errs = append(errs, "JWT_EXPIRY must be positive")
	}

	if c.Identity.APIKey == "" {
		errs = append(errs, "IDENTITY_API_KEY is required")
	}

	if c.AI.AccountID == "" {
		errs = append(errs, "AI_ACCOUNT_ID is required")
	}
	if c.AI.APIToken == "" {
		errs = append(errs, "AI_API_TOKEN is required")
	}

	if c.Limits.Monthly < 0 || c.Limits.Daily < 0 {
		errs = append(errs, "LIMITS_MONTHLY and LIMITS_DAILY must not be negative")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}
	if c.DB.Enabled() {
		if c.DB.Port < 1 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
		}
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required when DB_HOST is set")
		}
	}

	// Admin allow-list: warn only
	if len(c.Admin.Emails) == 0 {
		slog.Warn("ADMIN_EMAILS is empty, admin routes will reject every caller")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
