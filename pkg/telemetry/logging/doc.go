// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Masking of private keys, request signatures and credentials
//   - Context-aware logging with run IDs, environment and cookbook names
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithCookbook(ctx, "nginx")
//	logger.InfoContext(ctx, "deleting version", "version", "1.2.0")
//
// Packages that take a *slog.Logger receive logger.Slog(); redaction and
// context fields are implemented as slog handlers so they apply there too.
//
// # Redaction
//
//   - PEM private keys: replaced by [REDACTED PRIVATE KEY]
//   - X-Ops-Authorization-N header values: ***
//   - Bearer tokens and user:token@ URL credentials: ***
//   - Attributes named like password, token, secret or signature: ***
package logging
