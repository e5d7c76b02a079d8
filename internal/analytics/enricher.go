package analytics

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/metrics"
	"Taglink-Backend/pkg/geoip"
	"Taglink-Backend/pkg/useragent"
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GeoLocator resolves a client IP to a coarse location.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (*geoip.Location, error)
}

// Enricher turns a raw Job into a ClickEvent. It never fails: anything it cannot derive is
// left as Unknown or nil.
type Enricher struct {
	parser     *useragent.Parser
	geo        GeoLocator
	geoTimeout time.Duration
	log        *zap.Logger
}

// NewEnricher builds an enricher. A nil geo locator stores every click without location.
func NewEnricher(parser *useragent.Parser, geo GeoLocator, geoTimeout time.Duration, log *zap.Logger) *Enricher {
	return &Enricher{
		parser:     parser,
		geo:        geo,
		geoTimeout: geoTimeout,
		log:        log,
	}
}

func (e *Enricher) Enrich(ctx context.Context, job Job) *domain.ClickEvent {
	device := e.parser.Parse(job.UserAgent)

	occurredAt := job.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	ev := &domain.ClickEvent{
		LinkID:       job.LinkID,
		OccurredAt:   occurredAt.UTC(),
		DeviceClass:  device.DeviceClass,
		Browser:      device.Browser,
		OS:           device.OS,
		ReferrerHost: ReferrerHost(job.Referrer),
	}

	if loc := e.locate(ctx, job.IP); loc != nil {
		ev.Country = loc.Country
		ev.City = loc.City
	}
	return ev
}

func (e *Enricher) locate(ctx context.Context, ip string) *geoip.Location {
	if e.geo == nil || ip == "" {
		metrics.GeoLookups.WithLabelValues("skipped").Inc()
		return nil
	}

	if e.geoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.geoTimeout)
		defer cancel()
	}

	loc, err := e.geo.Lookup(ctx, ip)
	if err != nil {
		metrics.GeoLookups.WithLabelValues("failed").Inc()
		e.log.Debug("geo lookup failed, storing click without location", zap.Error(err))
		return nil
	}
	metrics.GeoLookups.WithLabelValues("ok").Inc()
	return loc
}

// ReferrerHost keeps only the lowercased hostname of a referrer URL. Empty or unparsable
// referrers return nil, which is reported as Direct.
func ReferrerHost(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil
	}
	return &host
}
