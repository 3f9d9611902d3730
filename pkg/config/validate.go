package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "chef.server_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// Chef credentials are not required here: they may still come from a
// knife.rb, which is resolved when the Chef client is built.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateChef(&cfg.Chef)...)
	errs = append(errs, validateCleanup(&cfg.Cleanup)...)
	errs = append(errs, validateEnvironmentSource(&cfg.EnvironmentSource)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateChef validates the Chef server connection settings.
func validateChef(cfg *ChefConfig) []FieldError {
	var errs []FieldError

	if cfg.ServerURL != "" {
		u, err := url.Parse(cfg.ServerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "chef.server_url",
				Message: fmt.Sprintf("invalid server URL %q: must be an absolute http(s) URL", cfg.ServerURL),
			})
		}
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "chef.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "chef.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{
			Field:   "chef.requests_per_second",
			Message: "requests per second must be non-negative",
		})
	}
	if cfg.RequestsPerSecond > 0 && cfg.Burst < 1 {
		errs = append(errs, FieldError{
			Field:   "chef.burst",
			Message: "burst must be at least 1 when throttling is enabled",
		})
	}

	return errs
}

// validateCleanup validates the retention policy.
func validateCleanup(cfg *CleanupConfig) []FieldError {
	var errs []FieldError

	if cfg.Environment == "" {
		errs = append(errs, FieldError{
			Field:   "cleanup.environment",
			Message: "environment is required",
		})
	}
	if cfg.HistoricalVersions < 0 {
		errs = append(errs, FieldError{
			Field:   "cleanup.historical_versions",
			Message: "historical versions must be non-negative",
		})
	}

	for i, pattern := range cfg.Include {
		if _, err := path.Match(pattern, ""); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("cleanup.include[%d]", i),
				Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err),
			})
		}
	}
	for i, pattern := range cfg.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("cleanup.exclude[%d]", i),
				Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err),
			})
		}
	}

	return errs
}

// validateEnvironmentSource validates the pin source selection.
func validateEnvironmentSource(cfg *EnvironmentSourceConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "server":
	case "file":
		if cfg.Path == "" {
			errs = append(errs, FieldError{
				Field:   "environment_source.path",
				Message: "path is required when mode is 'file'",
			})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "environment_source.git.repository",
				Message: "repository is required when mode is 'git'",
			})
		}
		if cfg.Git.Branch == "" {
			errs = append(errs, FieldError{
				Field:   "environment_source.git.branch",
				Message: "branch is required when mode is 'git'",
			})
		}
		errs = append(errs, validateGitAuth(&cfg.Git.Auth)...)
		if cfg.Git.Clone.Depth < 0 {
			errs = append(errs, FieldError{
				Field:   "environment_source.git.clone.depth",
				Message: "clone depth must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "environment_source.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'server', 'file', or 'git'", cfg.Mode),
		})
	}

	return errs
}

// validateGitAuth validates Git credentials for the selected auth type.
func validateGitAuth(cfg *GitAuthConfig) []FieldError {
	var errs []FieldError

	switch cfg.Type {
	case "none":
	case "token":
		if cfg.Token == "" {
			errs = append(errs, FieldError{
				Field:   "environment_source.git.auth.token",
				Message: "token is required when auth type is 'token'",
			})
		}
	case "ssh":
		if cfg.SSHKeyPath == "" {
			errs = append(errs, FieldError{
				Field:   "environment_source.git.auth.ssh_key_path",
				Message: "SSH key path is required when auth type is 'ssh'",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "environment_source.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Type),
		})
	}

	return errs
}

// validateHistory validates the run history store.
func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	validDrivers := map[string]bool{"sqlite3": true, "sqlite": true, "memory": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "history.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3', 'sqlite', or 'memory'", cfg.Driver),
		})
	}
	if cfg.Driver != "memory" && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "history.path",
			Message: "path is required for SQLite history",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "history.retention_days",
			Message: "retention days must be non-negative",
		})
	}

	return errs
}

// validateSchedule validates the cron schedule.
func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError

	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			errs = append(errs, FieldError{
				Field:   "schedule.cron",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Cron, err),
			})
		}
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

// validateTelemetry validates logging, metrics and tracing settings.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	// Validate metrics prometheus path
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
