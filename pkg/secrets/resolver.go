package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var referencePattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver substitutes ${secret:name} references using a chain of
// providers. The first provider holding the secret wins.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
}

// NewResolver creates a resolver over providers, tried in order.
func NewResolver(logger *slog.Logger, providers ...Provider) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{providers: providers, logger: logger}
}

// HasReference reports whether value contains a secret reference.
func HasReference(value string) bool {
	return referencePattern.MatchString(value)
}

// GetSecret returns the named secret from the first provider that has it.
// Errors other than ErrNotFound stop the search.
func (r *Resolver) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range r.providers {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			r.logger.DebugContext(ctx, "secret resolved", "name", redact(name), "provider", p.Name())
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s provider: %w", p.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %q (tried %s)", ErrNotFound, name, r.providerNames())
}

// Resolve replaces every reference in value. All references are
// attempted; the returned error lists each one that failed.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	var failures []string

	out := referencePattern.ReplaceAllStringFunc(value, func(match string) string {
		name := strings.TrimSpace(referencePattern.FindStringSubmatch(match)[1])
		secret, err := r.GetSecret(ctx, name)
		if err != nil {
			failures = append(failures, err.Error())
			return match
		}
		return secret
	})

	if len(failures) > 0 {
		return "", fmt.Errorf("failed to resolve secret references: %s", strings.Join(failures, "; "))
	}
	return out, nil
}

func (r *Resolver) providerNames() string {
	if len(r.providers) == 0 {
		return "no providers"
	}
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ", ")
}

// redact keeps secret names recognisable in debug logs without
// printing them in full.
func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
