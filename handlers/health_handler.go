package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/insight-rag/utils"
)

// readinessTimeout bounds the store check behind /readyz
const readinessTimeout = 2 * time.Second

// HealthChecker reports whether the vector store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusResponse is the body of GET /
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ReadinessResponse is the body of GET /readyz
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	checker HealthChecker
	service string
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(checker HealthChecker, service, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		service: service,
		version: version,
		logger:  logger,
	}
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, StatusResponse{
		Status:  "ok",
		Message: h.service + " is running",
	})
}

// HandleHealth handles GET /health
// Always returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Version: h.version,
	})
}

// HandleLiveness handles GET /healthz
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /readyz
// Reports 503 until the vector store answers queries
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{}
	status := "ready"
	httpStatus := http.StatusOK

	switch {
	case h.checker == nil:
		checks["vector_store"] = "not_initialized"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := h.checker.HealthCheck(ctx); err != nil {
			h.logger.Warn("vector store health check failed", zap.Error(err))
			checks["vector_store"] = "unhealthy"
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["vector_store"] = "healthy"
		}
	}

	response := ReadinessResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
