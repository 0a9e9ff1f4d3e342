package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
// needMailbox is true for the scan and schedule commands, which cannot
// run without mailbox credentials.
func Validate(cfg Config, needMailbox bool) error {
	var errs ValidationErrors

	if cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "required",
		})
	}

	if needMailbox {
		if cfg.IMAPHost == "" {
			errs = append(errs, ValidationError{
				Field:   "IMAP_HOST",
				Message: "required (host:port)",
			})
		} else if !strings.Contains(cfg.IMAPHost, ":") {
			errs = append(errs, ValidationError{
				Field:   "IMAP_HOST",
				Message: fmt.Sprintf("must include a port, got %q", cfg.IMAPHost),
			})
		}
		if cfg.IMAPUsername == "" {
			errs = append(errs, ValidationError{
				Field:   "IMAP_USERNAME",
				Message: "required",
			})
		}
		if cfg.IMAPPassword == "" {
			errs = append(errs, ValidationError{
				Field:   "IMAP_PASSWORD",
				Message: "required",
			})
		}
	}

	if cfg.ScanIntervalStr != "" {
		d, err := time.ParseDuration(cfg.ScanIntervalStr)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "SCAN_INTERVAL",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "SCAN_INTERVAL",
				Message: "must be positive",
			})
		}
	}

	if cfg.ConnectTimeoutStr != "" {
		d, err := time.ParseDuration(cfg.ConnectTimeoutStr)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "CONNECT_TIMEOUT",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "CONNECT_TIMEOUT",
				Message: "must be positive",
			})
		}
	}

	if cfg.NotifyWebhookURL != "" && !strings.HasPrefix(cfg.NotifyWebhookURL, "http://") &&
		!strings.HasPrefix(cfg.NotifyWebhookURL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "NOTIFY_WEBHOOK_URL",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", cfg.NotifyWebhookURL),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
