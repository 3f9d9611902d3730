// Package config provides configuration management for cookbook-cleaner.
//
// This package handles loading, validating, and watching configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// There is no package-level configuration instance. Commands load a
// *Config once and pass it to the components they build.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention
// COOKBOOK_CLEANER_SECTION_FIELD. For example:
//
//   - COOKBOOK_CLEANER_CHEF_SERVER_URL overrides chef.server_url
//   - COOKBOOK_CLEANER_CLEANUP_HISTORICAL_VERSIONS overrides cleanup.historical_versions
//   - COOKBOOK_CLEANER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Command-line flags are applied by the commands on top of the result.
//
// # Example Configuration
//
//	chef:
//	  server_url: "https://chef.example.com/organizations/acme"
//	  client_name: "cleaner"
//	  client_key: "/etc/chef/cleaner.pem"
//
//	cleanup:
//	  environment: "production"
//	  historical_versions: 5
//	  really_clean: false
//	  exclude: ["base-*"]
//
//	history:
//	  driver: "sqlite"
//	  path: "/var/lib/cookbook-cleaner/history.db"
//
//	schedule:
//	  cron: "0 4 * * 1"
//
//	environment_source:
//	  mode: "git"
//	  git:
//	    repository: "https://git.example.com/ops/chef-repo.git"
//	    auth:
//	      type: "token"
//	      token: "${secret:git-token}"
//
// # Watching
//
// Watcher reloads the file when it changes on disk and hands the new
// configuration to a callback; invalid edits are logged and ignored.
package config
