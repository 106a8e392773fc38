// Package identity talks to external OAuth/OIDC providers. Providers return
// identity facts only; deciding which account they belong to happens in the
// service layer.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"portfolio-accounts/internal/core/metrics"
	"portfolio-accounts/internal/domain"
)

var ErrUnknownProvider = errors.New("unknown identity provider")

const DefaultTimeout = 10 * time.Second

type Provider interface {
	Name() string
	// AuthCodeURL builds the authorization redirect. state and the S256 PKCE
	// challenge come from the caller.
	AuthCodeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*domain.ExternalIdentity, error)
}

// Registry looks providers up by name. Every Exchange through it is bounded
// by the registry timeout and reports failures as ErrProviderUnavailable.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(timeout time.Duration, log *zap.Logger, list ...Provider) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = &guarded{Provider: p, timeout: timeout, log: log}
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type guarded struct {
	Provider
	timeout time.Duration
	log     *zap.Logger
}

func (g *guarded) Exchange(ctx context.Context, code, codeVerifier string) (*domain.ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	id, err := g.Provider.Exchange(ctx, code, codeVerifier)
	if err == nil {
		return id, nil
	}
	metrics.ProviderFailures.WithLabelValues(g.Name()).Inc()
	g.log.Warn("identity provider exchange failed",
		zap.String("provider", g.Name()),
		zap.Bool("timeout", errors.Is(ctx.Err(), context.DeadlineExceeded)),
		zap.Error(err))
	if errors.Is(err, domain.ErrInvalidIdentity) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, g.Name(), err)
}
