package secrets

import (
	"log/slog"

	"chefops/cookbook-cleaner/pkg/config"
)

// FromConfig builds a resolver from the secrets section: the environment
// first, then the secrets directory when one is configured.
func FromConfig(cfg config.SecretsConfig, logger *slog.Logger) (*Resolver, error) {
	providers := []Provider{NewEnvProvider(cfg.EnvPrefix)}
	if cfg.Dir != "" {
		fp, err := NewFileProvider(config.ExpandHome(cfg.Dir))
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	return NewResolver(logger, providers...), nil
}
