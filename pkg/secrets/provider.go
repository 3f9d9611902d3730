package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a provider that does not hold the secret.
// The resolver moves on to the next provider only for this error.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret returns the value of the named secret, or an error
	// wrapping ErrNotFound when the backend does not have it.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs and errors.
	Name() string
}
