// Package redirect turns an inbound (host, code) pair into a UTM-tagged destination.
package redirect

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/metrics"
	"Taglink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Codes longer than this can never have been allocated.
const maxCodeLength = 32

type Resolver struct {
	repo          repository.RedirectRepository
	cache         Cache
	defaultDomain string
	log           *zap.Logger
}

func NewResolver(repo repository.RedirectRepository, cache Cache, defaultDomain string, log *zap.Logger) *Resolver {
	if cache == nil {
		cache = NopCache{}
	}
	return &Resolver{
		repo:          repo,
		cache:         cache,
		defaultDomain: domain.NormalizeHostname(defaultDomain),
		log:           log,
	}
}

// IsDefaultHost reports whether host is the platform domain.
func (r *Resolver) IsDefaultHost(host string) bool {
	return domain.NormalizeHostname(host) == r.defaultDomain
}

// Resolve finds the link for code as served from host. Links on the default domain are only
// reachable through it, and links on a custom domain only through that domain once verified.
// There is no fallback between the two.
func (r *Resolver) Resolve(ctx context.Context, host, code string) (*Target, error) {
	host = domain.NormalizeHostname(host)
	if code == "" || len(code) > maxCodeLength {
		metrics.Redirects.WithLabelValues("not_found").Inc()
		return nil, domain.ErrNotFound
	}

	if t, ok := r.cache.Get(ctx, host, code); ok {
		metrics.Redirects.WithLabelValues("found").Inc()
		return t, nil
	}

	var (
		link *domain.Link
		err  error
	)
	if host == r.defaultDomain {
		link, err = r.repo.ResolveDefault(ctx, code)
	} else {
		link, err = r.repo.ResolveOnDomain(ctx, host, code)
	}
	if errors.Is(err, repository.ErrNotFound) {
		metrics.Redirects.WithLabelValues("not_found").Inc()
		return nil, domain.ErrNotFound
	}
	if err != nil {
		metrics.Redirects.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to resolve %s: %w", code, err)
	}

	t := &Target{LinkID: link.ID, URL: BuildTarget(link.DestinationURL, link.UTM)}
	r.cache.Set(ctx, host, code, t)

	metrics.Redirects.WithLabelValues("found").Inc()
	return t, nil
}
