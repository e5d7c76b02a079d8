package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taglink_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Redirect path
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taglink_redirects_total",
			Help: "Redirect requests by result",
		},
		[]string{"result"}, // "found", "not_found", "error"
	)

	RedirectCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taglink_redirect_cache_total",
			Help: "Redirect cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Click pipeline
	ClickEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taglink_click_events_total",
			Help: "Click events by outcome",
		},
		[]string{"outcome"}, // "recorded", "dropped", "failed"
	)

	ClickQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taglink_click_queue_depth",
			Help: "Click events waiting for a worker",
		},
	)

	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taglink_geo_lookups_total",
			Help: "Geo lookups by result",
		},
		[]string{"result"}, // "ok", "skipped", "failed"
	)

	// Link store and domains
	LinkCreations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taglink_link_creations_total",
			Help: "Link creation attempts by result",
		},
		[]string{"result"}, // "created", "quota_exceeded", "allocation_exhausted", "error"
	)

	DomainVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taglink_domain_verifications_total",
			Help: "Domain verification attempts by result",
		},
		[]string{"result"}, // "verified", "pending", "failed", "error"
	)

	// Analytics
	AnalyticsQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taglink_analytics_query_duration_seconds",
			Help:    "Duration of analytics aggregations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope", "status"}, // scope: "link", "owner"; status: "ok", "timeout", "error"
	)
)
