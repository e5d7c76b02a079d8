package geoip

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidIP   = errors.New("invalid IP address")
	ErrRateLimited = errors.New("geo lookup rate limit exceeded")
)

// Location is the coarse position derived from an IP. Either field may be nil.
type Location struct {
	Country *string
	City    *string
}

// Provider resolves an IP address to a location.
type Provider interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
	Name() string
}

type Options struct {
	// RequestsPerMinute caps outbound lookups; zero or less disables the cap.
	RequestsPerMinute int
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

// Locator fronts a Provider with a rate limiter and a circuit breaker so a slow or failing
// provider costs callers nothing once the breaker is open.
type Locator struct {
	provider Provider
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*Location]
	log      *zap.Logger
}

func NewLocator(provider Provider, opts Options, log *zap.Logger) *Locator {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60), opts.RequestsPerMinute)
	}

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*Location](gobreaker.Settings{
		Name:    "geoip-" + provider.Name(),
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("geo lookup circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Locator{
		provider: provider,
		limiter:  limiter,
		breaker:  breaker,
		log:      log,
	}
}

// Lookup resolves ip. Private, loopback and link-local addresses resolve to an empty
// Location without touching the provider.
func (l *Locator) Lookup(ctx context.Context, ip string) (*Location, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	if IsPrivate(addr) {
		return &Location{}, nil
	}

	if !l.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return l.breaker.Execute(func() (*Location, error) {
		return l.provider.Lookup(ctx, addr.Unmap().String())
	})
}

// IsPrivate reports whether addr is not routable on the public internet.
func IsPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
