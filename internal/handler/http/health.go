package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger reports whether the backing database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter exposes click pipeline statistics.
type StatsReporter interface {
	Stats() map[string]interface{}
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db      Pinger
	clicks  StatsReporter
	version string
	log     *zap.Logger
}

func NewHealthHandler(db Pinger, clicks StatsReporter, version string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		clicks:  clicks,
		version: version,
		log:     log,
	}
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Version        string                 `json:"version"`
	DatabaseStatus string                 `json:"database_status"`
	Uptime         string                 `json:"uptime,omitempty"`
	Clicks         map[string]interface{} `json:"clicks,omitempty"`
}

var startTime = time.Now()

// Health reports database reachability and click pipeline state.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
		h.log.Error("database health check failed", zap.Error(err))
	}

	status := "healthy"
	statusCode := http.StatusOK
	if dbStatus == "unhealthy" {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		Version:        h.version,
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(startTime).String(),
	}
	if h.clicks != nil {
		response.Clicks = h.clicks.Stats()
	}

	writeJSON(w, h.log, response, statusCode)

	if status == "healthy" {
		h.log.Debug("health check passed")
	} else {
		h.log.Warn("health check failed", zap.String("database_status", dbStatus))
	}
}

// Ready is the readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now(),
	}, http.StatusOK)
}
