package config

import "time"

// Config is the root configuration structure for cookbook-cleaner.
// It contains the Chef server connection, the cleanup policy, where
// environment pins come from, run history, scheduling and telemetry.
type Config struct {
	// Chef contains the Chef server connection and request signing settings.
	Chef ChefConfig `yaml:"chef"`

	// Cleanup contains the retention policy applied to every cookbook.
	Cleanup CleanupConfig `yaml:"cleanup"`

	// EnvironmentSource selects where environment version pins are read from.
	EnvironmentSource EnvironmentSourceConfig `yaml:"environment_source"`

	// History contains configuration for the run history store.
	History HistoryConfig `yaml:"history"`

	// Schedule contains configuration for repeated cleanup runs.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Secrets configures where ${secret:name} references are resolved from.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ChefConfig contains configuration for talking to the Chef server API.
type ChefConfig struct {
	// ServerURL is the organization URL of the Chef server.
	// Example: "https://chef.example.com/organizations/acme"
	ServerURL string `yaml:"server_url"`

	// ClientName is the API client (node_name in knife.rb) used to sign requests.
	ClientName string `yaml:"client_name"`

	// ClientKey is the path to the client's PEM encoded RSA private key.
	ClientKey string `yaml:"client_key"`

	// KnifeConfig is an optional knife.rb whose chef_server_url, node_name
	// and client_key fill any of the fields above that are left empty.
	// Default: "~/.chef/knife.rb"
	KnifeConfig string `yaml:"knife_config"`

	// APIVersion is sent as X-Ops-Server-API-Version.
	// Default: "1"
	APIVersion string `yaml:"api_version"`

	// ChefVersion is sent as X-Chef-Version.
	// Default: "18.0.0"
	ChefVersion string `yaml:"chef_version"`

	// Timeout is the maximum duration of a single API request.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures (network
	// errors and 5xx responses).
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// SkipTLSVerify disables server certificate verification.
	// Default: false
	SkipTLSVerify bool `yaml:"skip_tls_verify"`

	// RequestsPerSecond caps the request rate against the Chef server.
	// Zero disables throttling.
	// Default: 0
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests allowed above RequestsPerSecond
	// before callers are made to wait.
	// Default: 1
	Burst int `yaml:"burst"`
}

// CleanupConfig contains the retention policy.
type CleanupConfig struct {
	// Environment is the environment whose pins protect cookbook versions.
	// Default: "production"
	Environment string `yaml:"environment"`

	// HistoricalVersions is the number of versions older than the pin to keep.
	// Zero keeps none.
	// Default: 5
	HistoricalVersions int `yaml:"historical_versions"`

	// ReallyClean enables destructive mode. When false the run only reports.
	// Default: false
	ReallyClean bool `yaml:"really_clean"`

	// Verbose prints the full list of versions fitting the deletion criteria.
	// Default: false
	Verbose bool `yaml:"verbose"`

	// Include limits the run to cookbooks matching at least one glob pattern.
	// Empty means every cookbook.
	Include []string `yaml:"include"`

	// Exclude skips cookbooks matching any glob pattern.
	Exclude []string `yaml:"exclude"`
}

// EnvironmentSourceConfig selects the source of environment pins.
type EnvironmentSourceConfig struct {
	// Mode is one of "server" (Chef server API), "file" (local chef-repo
	// environments directory) or "git" (chef-repo Git repository).
	// Default: "server"
	Mode string `yaml:"mode"`

	// Path is the environments directory when Mode is "file".
	// Default: "./environments"
	Path string `yaml:"path"`

	// Git contains the repository settings when Mode is "git".
	Git GitSourceConfig `yaml:"git"`
}

// GitSourceConfig configures a chef-repo checkout used as pin source.
type GitSourceConfig struct {
	// Repository URL (HTTPS or SSH).
	// Example: "git@github.com:acme/chef-repo.git"
	Repository string `yaml:"repository"`

	// Branch to check out.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository holding environment files.
	// Default: "environments"
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Clone configures the local working copy.
	Clone GitCloneConfig `yaml:"clone"`

	// Timeout bounds each clone or pull.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type is one of "none", "token" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is the access token for "token" auth.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key for "ssh" auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted SSH key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitCloneConfig configures the local working copy.
type GitCloneConfig struct {
	// Depth limits clone history; 0 means full history.
	// Default: 1
	Depth int `yaml:"depth"`

	// LocalPath is where the repository is cloned.
	// Default: "<tmp>/cookbook-cleaner-chef-repo"
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes an existing working copy before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// HistoryConfig contains configuration for the run history store.
type HistoryConfig struct {
	// Enabled controls whether runs and deletions are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver is one of "sqlite3" (cgo, mattn/go-sqlite3), "sqlite"
	// (pure Go, modernc.org/sqlite) or "memory".
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays removes history older than this many days when
	// pruning. 0 keeps history forever.
	// Default: 365
	RetentionDays int `yaml:"retention_days"`
}

// ScheduleConfig contains configuration for repeated cleanup runs.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression.
	// Default: "0 4 * * *" (daily at 4 AM)
	Cron string `yaml:"cron"`

	// RunOnStart triggers one run immediately when the scheduler starts.
	// Default: false
	RunOnStart bool `yaml:"run_on_start"`

	// WatchConfig reloads the configuration file when it changes.
	// Default: true
	WatchConfig bool `yaml:"watch_config"`

	// ListenAddress serves /metrics and /healthz while scheduled.
	// Empty disables the listener.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SecretsConfig configures secret resolution for credential fields such
// as environment_source.git.auth.token. A field holding "${secret:name}"
// is replaced with the secret's value before use.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name to form the
	// environment variable that holds it.
	// Default: "COOKBOOK_CLEANER_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is an optional directory of one-file-per-secret values, as
	// mounted by Kubernetes or Docker secrets. Checked after the
	// environment.
	Dir string `yaml:"dir"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks private keys and request signatures in log fields.
	// Default: true
	Redact bool `yaml:"redact"`

	// RedactPatterns contains additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// TextfilePath, when set, writes metrics in the node_exporter
	// textfile format after every run.
	TextfilePath string `yaml:"textfile_path"`

	// Namespace is the metric name prefix.
	// Default: "cookbook_cleaner"
	Namespace string `yaml:"namespace"`

	// RunDurationBuckets defines histogram buckets for run duration (seconds).
	// Default: [1, 5, 15, 30, 60, 120, 300, 600]
	RunDurationBuckets []float64 `yaml:"run_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "cookbook-cleaner"
	ServiceName string `yaml:"service_name"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
