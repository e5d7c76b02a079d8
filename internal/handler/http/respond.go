package http

import (
	"Taglink-Backend/internal/auth"
	"Taglink-Backend/internal/domain"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// QuotaExceededResponse is returned with 403 when a plan limit denies link creation.
type QuotaExceededResponse struct {
	Error   string `json:"error"`
	Current int64  `json:"current"`
	Limit   int64  `json:"limit"`
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, code, message string, statusCode int) {
	writeJSON(w, log, ErrorResponse{Error: code, Message: message}, statusCode)
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		qe *domain.QuotaExceededError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &qe):
		writeJSON(w, log, QuotaExceededResponse{Error: "quota_exceeded", Current: qe.Current, Limit: qe.Limit}, http.StatusForbidden)
	case errors.As(err, &ve):
		writeJSON(w, log, ErrorResponse{Error: "validation_error", Message: ve.Message, Field: ve.Field}, http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, log, "not_found", "Resource not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, log, "forbidden", "Access denied", http.StatusForbidden)
	case errors.Is(err, domain.ErrDomainAlreadyClaimed):
		writeError(w, log, "domain_already_claimed", "Hostname is registered to another account", http.StatusConflict)
	case errors.Is(err, domain.ErrTransientUnavailable), errors.Is(err, domain.ErrTransientDependency):
		writeError(w, log, "temporarily_unavailable", "Please retry later", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrAllocationExhausted):
		log.Error("short code keyspace exhausted", zap.Error(err))
		writeError(w, log, "internal_error", "Internal server error", http.StatusInternalServerError)
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, log, "internal_error", "Internal server error", http.StatusInternalServerError)
	}
}

// accountFrom returns the authenticated account or writes 401.
func accountFrom(w http.ResponseWriter, r *http.Request, log *zap.Logger) (domain.Account, bool) {
	acc, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, log, "unauthorized", "Authentication required", http.StatusUnauthorized)
	}
	return acc, ok
}

// idParam parses the {id} path parameter or writes 400.
func idParam(w http.ResponseWriter, r *http.Request, log *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, log, "validation_error", "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
