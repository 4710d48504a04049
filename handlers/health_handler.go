package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/voiceme/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the GET /health response
type HealthResponse struct {
	Status            string          `json:"status"`
	ServicesAvailable map[string]bool `json:"services_available"`
	Timestamp         string          `json:"timestamp"`
}

// ReadinessResponse represents the GET /readyz response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker is satisfied by the database pool
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db        HealthChecker // nil when no database is configured
	available map[string]bool
	providers int
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. available maps every known
// provider name to whether it has credentials; providers is the number
// actually registered.
func NewHealthHandler(db HealthChecker, available map[string]bool, providers int, logger *zap.Logger) *HealthHandler {
	copied := make(map[string]bool, len(available))
	for k, v := range available {
		copied[k] = v
	}
	return &HealthHandler{
		db:        db,
		available: copied,
		providers: providers,
		logger:    logger,
	}
}

// HandleHealth handles GET /health
// Liveness only; always 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:            "healthy",
		ServicesAvailable: h.available,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if h.db == nil {
		checks["database"] = "not_configured"
	} else if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		ready = false
	} else {
		checks["database"] = "healthy"
	}

	if h.providers == 0 {
		checks["providers"] = "none_configured"
		ready = false
	} else {
		checks["providers"] = "configured"
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
