package http

import (
	"Taglink-Backend/internal/analytics"
	"Taglink-Backend/internal/domain"
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Aggregator computes analytics reports.
type Aggregator interface {
	Aggregate(ctx context.Context, scope domain.ClickScope, window int, timeout time.Duration) (*analytics.Report, error)
}

// AnalyticsHandler serves click analytics.
type AnalyticsHandler struct {
	links      LinkService
	aggregator Aggregator
	log        *zap.Logger
}

func NewAnalyticsHandler(links LinkService, aggregator Aggregator, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		links:      links,
		aggregator: aggregator,
		log:        log,
	}
}

// GetAnalytics returns click breakdowns and a daily time series
//
//	@Summary		Get analytics
//	@Description	Aggregates clicks for one link (linkId) or for every link the caller can see. Breakdowns list the top 5 groups plus an Other bucket; the time series has one entry per UTC day.
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Param			linkId	query		int					false	"Link ID; omit for all of the caller's links"
//	@Param			window	query		int					false	"Trailing days: 7 or 14"	default(7)
//	@Param			timeout	query		string				false	"Query deadline, e.g. 3s"
//	@Success		200		{object}	analytics.Report	"Analytics report"
//	@Failure		400		{object}	ErrorResponse		"Invalid parameters"
//	@Failure		403		{object}	ErrorResponse		"Access denied"
//	@Failure		404		{object}	ErrorResponse		"Link not found"
//	@Failure		503		{object}	ErrorResponse		"Aggregation timed out"
//	@Router			/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	q := r.URL.Query()

	window := 7
	if raw := q.Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, h.log, domain.NewValidationError("window", "must be 7 or 14"))
			return
		}
		window = n
	}

	var timeout time.Duration
	if raw := q.Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeServiceError(w, h.log, domain.NewValidationError("timeout", "must be a positive duration"))
			return
		}
		timeout = d
	}

	scope := domain.ClickScope{OwnerID: acc.ID, Teams: acc.Teams}
	if raw := q.Get("linkId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeServiceError(w, h.log, domain.NewValidationError("linkId", "must be a link id"))
			return
		}
		link, err := h.links.Get(r.Context(), acc, id)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		scope = domain.ClickScope{LinkID: &link.ID}
	}

	report, err := h.aggregator.Aggregate(r.Context(), scope, window, timeout)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, report, http.StatusOK)
}
