// Package auth supplies the bearer credential used to open the feed
// connection, and inspects or issues the HS256 JWTs the feed accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Provider returns the current bearer token. An empty token with a nil
// error means no credential is available.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a provider that always yields token.
func Static(token string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(token), nil
	})
}

// Env returns a provider that reads the named environment variable on
// every call, so a credential exported later is picked up on the next
// connection attempt.
func Env(name string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(os.Getenv(name)), nil
	})
}

// File returns a provider that reads the token from path on every call.
// A missing file means no credential.
func File(path string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	})
}

// Chain returns the first non-empty token from providers, in order.
// Provider errors are returned immediately.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (string, error) {
		for _, p := range providers {
			token, err := p.Token(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	})
}

// WithExpiryWarning wraps p and logs when the token it returns is a JWT
// that has expired or expires within window. The token is returned either
// way; the feed decides whether to accept it.
func WithExpiryWarning(p Provider, window time.Duration, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}

	return ProviderFunc(func(ctx context.Context) (string, error) {
		token, err := p.Token(ctx)
		if err != nil || token == "" {
			return token, err
		}

		claims, err := Inspect(token)
		if err != nil {
			logger.Debug("token is not an inspectable JWT", "error", err)
			return token, nil
		}
		if claims.ExpiresAt.IsZero() {
			return token, nil
		}

		remaining := time.Until(claims.ExpiresAt)
		switch {
		case remaining <= 0:
			logger.Warn("feed token has expired", "subject", claims.Subject, "expired_at", claims.ExpiresAt)
		case remaining < window:
			logger.Warn("feed token expires soon", "subject", claims.Subject, "expires_in", remaining.Round(time.Second))
		}
		return token, nil
	})
}
