package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	// Chef defaults
	DefaultKnifeConfig     = "~/.chef/knife.rb"
	DefaultChefAPIVersion  = "1"
	DefaultChefVersion     = "18.0.0"
	DefaultChefTimeout     = 60 * time.Second
	DefaultChefMaxRetries  = 3
	DefaultChefSkipTLS     = false
	DefaultChefBurst       = 1
	DefaultCleanupEnv      = "production"
	DefaultHistoricalCount = 5
	DefaultReallyClean     = false
	DefaultCleanupVerbose  = false

	// Environment source defaults
	DefaultEnvironmentMode  = "server"
	DefaultEnvironmentPath  = "./environments"
	DefaultGitBranch        = "main"
	DefaultGitPath          = "environments"
	DefaultGitAuthType      = "none"
	DefaultGitCloneDepth    = 1
	DefaultGitTimeout       = 60 * time.Second
	DefaultGitLocalPathName = "cookbook-cleaner-chef-repo"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "COOKBOOK_CLEANER_SECRET_"

	// History defaults
	DefaultHistoryEnabled       = true
	DefaultHistoryDriver        = "sqlite3"
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryBusyTimeout   = 5 * time.Second
	DefaultHistoryRetentionDays = 365

	// Schedule defaults
	DefaultScheduleCron          = "0 4 * * *"
	DefaultScheduleRunOnStart    = false
	DefaultScheduleWatchConfig   = true
	DefaultScheduleListenAddress = "127.0.0.1:9464"
	DefaultShutdownTimeout       = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultLoggingRedact      = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "cookbook_cleaner"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingInsecure    = true
	DefaultTracingService     = "cookbook-cleaner"
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultRunDurationBuckets are histogram buckets (seconds) for run duration.
var DefaultRunDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600}

// NewDefaultConfig returns a configuration with every field set to its
// default. LoadConfig decodes the YAML file on top of this value, so
// fields absent from the file keep their defaults, including booleans
// that default to true and counts whose zero value is meaningful.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Chef: ChefConfig{
			KnifeConfig:   DefaultKnifeConfig,
			APIVersion:    DefaultChefAPIVersion,
			ChefVersion:   DefaultChefVersion,
			Timeout:       DefaultChefTimeout,
			MaxRetries:    DefaultChefMaxRetries,
			SkipTLSVerify: DefaultChefSkipTLS,
			Burst:         DefaultChefBurst,
		},
		Secrets: SecretsConfig{
			EnvPrefix: DefaultSecretsEnvPrefix,
		},
		Cleanup: CleanupConfig{
			Environment:        DefaultCleanupEnv,
			HistoricalVersions: DefaultHistoricalCount,
			ReallyClean:        DefaultReallyClean,
			Verbose:            DefaultCleanupVerbose,
		},
		History: HistoryConfig{
			Enabled:       DefaultHistoryEnabled,
			RetentionDays: DefaultHistoryRetentionDays,
		},
		Schedule: ScheduleConfig{
			RunOnStart:    DefaultScheduleRunOnStart,
			WatchConfig:   DefaultScheduleWatchConfig,
			ListenAddress: DefaultScheduleListenAddress,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Redact: DefaultLoggingRedact,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled:     DefaultTracingEnabled,
				SampleRatio: DefaultTracingSampleRatio,
				Insecure:    DefaultTracingInsecure,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty string, duration and slice fields with their
// defaults. Booleans and HistoricalVersions are left alone because their
// zero values are valid settings; use NewDefaultConfig as the starting
// point to get those defaults.
func ApplyDefaults(cfg *Config) {
	// Chef defaults
	if cfg.Chef.APIVersion == "" {
		cfg.Chef.APIVersion = DefaultChefAPIVersion
	}
	if cfg.Chef.ChefVersion == "" {
		cfg.Chef.ChefVersion = DefaultChefVersion
	}
	if cfg.Chef.Timeout == 0 {
		cfg.Chef.Timeout = DefaultChefTimeout
	}
	if cfg.Chef.MaxRetries == 0 {
		cfg.Chef.MaxRetries = DefaultChefMaxRetries
	}
	if cfg.Chef.Burst == 0 {
		cfg.Chef.Burst = DefaultChefBurst
	}

	// Cleanup defaults
	if cfg.Cleanup.Environment == "" {
		cfg.Cleanup.Environment = DefaultCleanupEnv
	}

	// Environment source defaults
	if cfg.EnvironmentSource.Mode == "" {
		cfg.EnvironmentSource.Mode = DefaultEnvironmentMode
	}
	if cfg.EnvironmentSource.Path == "" {
		cfg.EnvironmentSource.Path = DefaultEnvironmentPath
	}
	applyGitDefaults(&cfg.EnvironmentSource.Git)

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	// History defaults
	if cfg.History.Driver == "" {
		cfg.History.Driver = DefaultHistoryDriver
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultHistoryBusyTimeout
	}

	// Schedule defaults
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Schedule.ShutdownTimeout == 0 {
		cfg.Schedule.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RunDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RunDurationBuckets = append([]float64(nil), DefaultRunDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}

// applyGitDefaults fills the Git pin source defaults.
func applyGitDefaults(cfg *GitSourceConfig) {
	if cfg.Branch == "" {
		cfg.Branch = DefaultGitBranch
	}
	if cfg.Path == "" {
		cfg.Path = DefaultGitPath
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = DefaultGitAuthType
	}
	if cfg.Clone.Depth == 0 {
		cfg.Clone.Depth = DefaultGitCloneDepth
	}
	if cfg.Clone.LocalPath == "" {
		cfg.Clone.LocalPath = filepath.Join(os.TempDir(), DefaultGitLocalPathName)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultGitTimeout
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
// Paths without the prefix, or when the home directory is unknown, are
// returned unchanged.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
