package http

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/quota"
	"context"
	"net/http"

	"go.uber.org/zap"
)

// UsageReporter reports an account's quota consumption.
type UsageReporter interface {
	Usage(ctx context.Context, acc domain.Account) (*quota.Usage, error)
}

// QuotaHandler exposes the caller's plan usage.
type QuotaHandler struct {
	usage UsageReporter
	log   *zap.Logger
}

func NewQuotaHandler(usage UsageReporter, log *zap.Logger) *QuotaHandler {
	return &QuotaHandler{
		usage: usage,
		log:   log,
	}
}

// GetQuota returns the caller's personal link count and plan limit
//
//	@Summary		Get quota usage
//	@Description	Personal links counted against the plan. A null limit means the plan is unlimited; team links are never counted.
//	@Tags			Quota
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	quota.Usage		"Usage"
//	@Failure		401	{object}	ErrorResponse	"Authentication required"
//	@Router			/quota [get]
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}

	usage, err := h.usage.Usage(r.Context(), acc)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, usage, http.StatusOK)
}
