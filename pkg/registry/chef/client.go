package chef

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"chefops/cookbook-cleaner/pkg/registry"
	"chefops/cookbook-cleaner/pkg/telemetry/metrics"
	"chefops/cookbook-cleaner/pkg/telemetry/tracing"
	"chefops/cookbook-cleaner/pkg/version"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 4096

// Client talks to the Chef server API. It implements registry.Client.
type Client struct {
	base        *url.URL
	signer      *Signer
	httpClient  *http.Client
	chefVersion string
	maxRetries  int
	backoff     time.Duration
	limiter     *rate.Limiter

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

var _ registry.Client = (*Client)(nil)

// New creates a Chef server client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("chef client config is required")
	}
	if cfg.Key == nil {
		return nil, errors.New("chef client key is required")
	}

	base, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chef server URL %q: %w", cfg.ServerURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid chef server URL %q: scheme must be http or https", cfg.ServerURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.SkipTLSVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed servers
		}
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		}
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "1"
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		base:        base,
		signer:      NewSigner(cfg.ClientName, cfg.Key, apiVersion),
		httpClient:  httpClient,
		chefVersion: cfg.ChefVersion,
		maxRetries:  cfg.MaxRetries,
		backoff:     backoff,
		limiter:     limiter,
		logger:      logger,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
	}, nil
}

// ServerURL returns the organization URL the client talks to.
func (c *Client) ServerURL() string {
	return c.base.String()
}

// LoadInventory lists every version of every cookbook.
func (c *Client) LoadInventory(ctx context.Context) (registry.Inventory, error) {
	ctx, span := c.tracer.Start(ctx, "chef.load_inventory")
	defer span.End()

	body, err := c.get(ctx, "/cookbooks", url.Values{"num_versions": {"all"}})
	if err != nil {
		tracing.SetError(span, err)
		return nil, registry.NewUnavailableError("inventory", c.ServerURL(), err)
	}

	inv, err := registry.DecodeCookbookList(body)
	if err != nil {
		tracing.SetError(span, err)
		return nil, registry.NewUnavailableError("inventory", c.ServerURL(), err)
	}

	span.SetAttributes(
		attribute.Int("chef.cookbooks", len(inv)),
		attribute.Int("chef.versions", inv.VersionCount()),
	)
	return inv, nil
}

// environmentDocument is the subset of GET /environments/{name} that
// carries version constraints.
type environmentDocument struct {
	Name             string            `json:"name"`
	CookbookVersions map[string]string `json:"cookbook_versions"`
}

// LoadPins fetches the cookbook version constraints of an environment.
// A missing environment is reported as unavailable wrapping
// registry.ErrNotFound.
func (c *Client) LoadPins(ctx context.Context, environment string) (registry.Pins, error) {
	ctx, span := c.tracer.Start(ctx, "chef.load_pins",
		trace.WithAttributes(attribute.String("chef.environment", environment)))
	defer span.End()

	body, err := c.get(ctx, "/environments/"+url.PathEscape(environment), nil)
	if err != nil {
		var se *registry.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			err = fmt.Errorf("environment %q: %w", environment, registry.ErrNotFound)
		}
		tracing.SetError(span, err)
		return nil, registry.NewUnavailableError("pins", c.ServerURL(), err)
	}

	var doc environmentDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		err = fmt.Errorf("failed to decode environment %q: %w", environment, err)
		tracing.SetError(span, err)
		return nil, registry.NewUnavailableError("pins", c.ServerURL(), err)
	}

	pins := make(registry.Pins, len(doc.CookbookVersions))
	for name, constraint := range doc.CookbookVersions {
		pins[name] = constraint
	}
	span.SetAttributes(attribute.Int("chef.pins", len(pins)))
	return pins, nil
}

// DeleteVersion removes one cookbook version from the server.
func (c *Client) DeleteVersion(ctx context.Context, name string, v version.Version) error {
	ctx, span := c.tracer.Start(ctx, "chef.delete_version",
		trace.WithAttributes(
			attribute.String("chef.cookbook", name),
			attribute.String("chef.version", v.String()),
		))
	defer span.End()

	requestPath := "/cookbooks/" + url.PathEscape(name) + "/" + url.PathEscape(v.String())
	if _, err := c.do(ctx, http.MethodDelete, requestPath, nil); err != nil {
		tracing.SetError(span, err)
		return registry.NewDeletionError(name, v.String(), err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, requestPath string, query url.Values) ([]byte, error) {
	u := c.base.JoinPath(requestPath)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return c.doURL(ctx, http.MethodGet, u, nil)
}

func (c *Client) do(ctx context.Context, method, requestPath string, body []byte) ([]byte, error) {
	return c.doURL(ctx, method, c.base.JoinPath(requestPath), body)
}

// doURL sends a signed request, retrying network errors and transient
// server statuses with exponential backoff. Client errors are returned
// immediately.
func (c *Client) doURL(ctx context.Context, method string, u *url.URL, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff << (attempt - 1)
			c.logger.DebugContext(ctx, "retrying chef request",
				"method", method,
				"path", u.Path,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		respBody, err := c.send(ctx, method, u, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var se *registry.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}

		c.logger.WarnContext(ctx, "chef request failed, will retry",
			"method", method,
			"path", u.Path,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, lastErr
}

// wait blocks until the limiter admits another request. Retries count
// against the limit like first attempts.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("chef request throttled: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.chefVersion != "" {
		req.Header.Set("X-Chef-Version", c.chefVersion)
	}
	tracing.Inject(ctx, req.Header)

	if err := c.signer.Sign(req, body); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "sending chef request", "method", method, "url", u.String())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordChefRequest(method, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.RecordChefRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, &registry.StatusError{
			Method:     method,
			Path:       u.Path,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(respBody)),
		}
	}

	return respBody, nil
}
