package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/leadflow/internal/infra/health"
)

type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

type HealthHandler struct {
	Monitor HealthChecker
}

func NewHealthHandler(monitor HealthChecker) *HealthHandler {
	return &HealthHandler{Monitor: monitor}
}

// Handle serves GET /api/health/: 200 when every probe passed, 503 otherwise.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	report := h.Monitor.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
