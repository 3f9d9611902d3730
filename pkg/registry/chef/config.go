package chef

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/telemetry/metrics"
	"chefops/cookbook-cleaner/pkg/telemetry/tracing"
)

// DefaultRetryBackoff is the delay before the first retry; each further
// retry doubles it.
const DefaultRetryBackoff = time.Second

// Config holds everything a Client needs to talk to one Chef organization.
type Config struct {
	// ServerURL is the organization URL, for example
	// https://chef.example.com/organizations/acme.
	ServerURL   string
	ClientName  string
	Key         *rsa.PrivateKey
	APIVersion  string
	ChefVersion string

	Timeout       time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	SkipTLSVerify bool

	// RequestsPerSecond throttles requests when positive. Burst requests
	// may be sent back to back before the limit applies.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the client built from Timeout and SkipTLSVerify.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// FromConfig resolves the connection settings from the chef section.
// Fields left empty are filled from the knife.rb named by KnifeConfig, if
// that file exists. The client key is loaded from disk.
func FromConfig(cfg config.ChefConfig) (*Config, error) {
	serverURL := cfg.ServerURL
	clientName := cfg.ClientName
	keyPath := config.ExpandHome(cfg.ClientKey)

	if (serverURL == "" || clientName == "" || keyPath == "") && cfg.KnifeConfig != "" {
		knifePath := config.ExpandHome(cfg.KnifeConfig)
		kc, err := ParseKnifeConfig(knifePath)
		switch {
		case err == nil:
			if serverURL == "" {
				serverURL = kc.ServerURL
			}
			if clientName == "" {
				clientName = kc.NodeName
			}
			if keyPath == "" {
				keyPath = config.ExpandHome(kc.ClientKey)
			}
		case errors.Is(err, os.ErrNotExist):
			// No knife.rb; rely on explicit settings.
		default:
			return nil, err
		}
	}

	if serverURL == "" {
		return nil, fmt.Errorf("chef server URL is not configured (set chef.server_url or chef_server_url in knife.rb)")
	}
	if clientName == "" {
		return nil, fmt.Errorf("chef client name is not configured (set chef.client_name or node_name in knife.rb)")
	}
	if keyPath == "" {
		return nil, fmt.Errorf("chef client key is not configured (set chef.client_key or client_key in knife.rb)")
	}

	key, err := LoadPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerURL:     serverURL,
		ClientName:    clientName,
		Key:           key,
		APIVersion:    cfg.APIVersion,
		ChefVersion:   cfg.ChefVersion,
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  DefaultRetryBackoff,
		SkipTLSVerify: cfg.SkipTLSVerify,

		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, nil
}
