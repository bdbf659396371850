// Package auth guards the inventory HTTP surface.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Method names an authentication scheme.
type Method string

const (
	// MethodNone disables authentication.
	MethodNone Method = "none"
	// MethodBasic is HTTP Basic authentication against bcrypt hashes.
	MethodBasic Method = "basic"
	// MethodAPIKey checks the X-API-Key header.
	MethodAPIKey Method = "apikey"
	// MethodMulti accepts any configured scheme.
	MethodMulti Method = "multi"
)

// Principal identifies the caller of an authenticated request.
type Principal struct {
	Method  Method
	Subject string
}

// Authenticator validates a request and returns the caller.
type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
	Method() Method
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMode        = errors.New("unknown auth mode")
)

type contextKey struct{}

// FromContext returns the Principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// Settings carries the credential lists used by New.
type Settings struct {
	Mode       string
	BasicUsers string
	APIKeys    string
}

// New builds the authenticator for s.Mode. A nil Authenticator with a nil
// error means authentication is disabled.
func New(s Settings, logger *zap.Logger) (Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch Method(s.Mode) {
	case MethodNone, "":
		logger.Info("authentication disabled")
		return nil, nil
	case MethodBasic:
		logger.Info("authentication mode: basic auth")
		return NewBasicAuthenticator(s.BasicUsers)
	case MethodAPIKey:
		logger.Info("authentication mode: API key")
		return NewAPIKeyAuthenticator(s.APIKeys)
	case MethodMulti:
		return newMulti(s, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, s.Mode)
	}
}

func newMulti(s Settings, logger *zap.Logger) (Authenticator, error) {
	var chain []Authenticator

	if s.BasicUsers != "" {
		basic, err := NewBasicAuthenticator(s.BasicUsers)
		if err != nil {
			return nil, fmt.Errorf("creating basic authenticator: %w", err)
		}
		chain = append(chain, basic)
	}

	if s.APIKeys != "" {
		keys, err := NewAPIKeyAuthenticator(s.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("creating API key authenticator: %w", err)
		}
		chain = append(chain, keys)
	}

	if len(chain) == 0 {
		return nil, errors.New("multi auth mode requires at least one authenticator")
	}

	logger.Info("authentication mode: multi", zap.Int("methods", len(chain)))
	return NewMultiAuthenticator(chain...), nil
}

// parsePairs splits "a:b,c:d" into pairs. Entries are split on the first
// colon; blank entries are skipped.
func parsePairs(scheme, config, want string) (map[string]string, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: config must not be empty", scheme)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		left, right, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%s: invalid entry format, expected %s", scheme, want)
		}

		left = strings.TrimSpace(left)
		right = strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s: both sides of %s must be set", scheme, want)
		}

		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s: no valid entries found", scheme)
	}

	return pairs, nil
}
