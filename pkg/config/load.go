package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "COOKBOOK_CLEANER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefaultConfig, remaining empty fields
// get their defaults, and the result is validated. Environment variables
// are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Validate
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration over the defaults without validating.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults (a misspelled really_clean must not be ignored).
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention COOKBOOK_CLEANER_SECTION_FIELD (e.g., COOKBOOK_CLEANER_CHEF_SERVER_URL).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Decode YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Chef overrides
	envString("CHEF_SERVER_URL", &cfg.Chef.ServerURL)
	envString("CHEF_CLIENT_NAME", &cfg.Chef.ClientName)
	envString("CHEF_CLIENT_KEY", &cfg.Chef.ClientKey)
	envString("CHEF_KNIFE_CONFIG", &cfg.Chef.KnifeConfig)
	envString("CHEF_API_VERSION", &cfg.Chef.APIVersion)
	envDuration("CHEF_TIMEOUT", &cfg.Chef.Timeout)
	envInt("CHEF_MAX_RETRIES", &cfg.Chef.MaxRetries)
	envBool("CHEF_SKIP_TLS_VERIFY", &cfg.Chef.SkipTLSVerify)
	envInt("CHEF_BURST", &cfg.Chef.Burst)
	if val := os.Getenv(EnvPrefix + "CHEF_REQUESTS_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Chef.RequestsPerSecond = f
		}
	}

	// Cleanup overrides
	envString("CLEANUP_ENVIRONMENT", &cfg.Cleanup.Environment)
	envInt("CLEANUP_HISTORICAL_VERSIONS", &cfg.Cleanup.HistoricalVersions)
	envBool("CLEANUP_REALLY_CLEAN", &cfg.Cleanup.ReallyClean)
	envBool("CLEANUP_VERBOSE", &cfg.Cleanup.Verbose)
	envList("CLEANUP_INCLUDE", &cfg.Cleanup.Include)
	envList("CLEANUP_EXCLUDE", &cfg.Cleanup.Exclude)

	// Environment source overrides
	envString("ENVIRONMENT_SOURCE_MODE", &cfg.EnvironmentSource.Mode)
	envString("ENVIRONMENT_SOURCE_PATH", &cfg.EnvironmentSource.Path)
	envString("ENVIRONMENT_SOURCE_GIT_REPOSITORY", &cfg.EnvironmentSource.Git.Repository)
	envString("ENVIRONMENT_SOURCE_GIT_BRANCH", &cfg.EnvironmentSource.Git.Branch)
	envString("ENVIRONMENT_SOURCE_GIT_PATH", &cfg.EnvironmentSource.Git.Path)
	envString("ENVIRONMENT_SOURCE_GIT_AUTH_TYPE", &cfg.EnvironmentSource.Git.Auth.Type)
	envString("ENVIRONMENT_SOURCE_GIT_AUTH_TOKEN", &cfg.EnvironmentSource.Git.Auth.Token)
	envString("ENVIRONMENT_SOURCE_GIT_AUTH_SSH_KEY_PATH", &cfg.EnvironmentSource.Git.Auth.SSHKeyPath)

	// Secrets overrides
	envString("SECRETS_DIR", &cfg.Secrets.Dir)

	// History overrides
	envBool("HISTORY_ENABLED", &cfg.History.Enabled)
	envString("HISTORY_DRIVER", &cfg.History.Driver)
	envString("HISTORY_PATH", &cfg.History.Path)
	envInt("HISTORY_RETENTION_DAYS", &cfg.History.RetentionDays)

	// Schedule overrides
	envString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	envBool("SCHEDULE_RUN_ON_START", &cfg.Schedule.RunOnStart)
	envBool("SCHEDULE_WATCH_CONFIG", &cfg.Schedule.WatchConfig)
	envString("SCHEDULE_LISTEN_ADDRESS", &cfg.Schedule.ListenAddress)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envList reads a comma separated list.
func envList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
