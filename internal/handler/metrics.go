package handler

import (
	"net/http"

	"osrs-vault-api/internal/model"
	"osrs-vault-api/internal/service"
	"osrs-vault-api/pkg/apierror"
	"osrs-vault-api/pkg/response"
)

// MetricsHandler serves market metrics and the acquisition counter.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// MetricsResponse is the body of GET /api/metrics.
type MetricsResponse struct {
	OK            bool                 `json:"ok"`
	Configured    bool                 `json:"configured"`
	Metrics       *model.MarketMetrics `json:"metrics"`
	ItemsAcquired int64                `json:"itemsAcquired"`
	Error         string               `json:"error,omitempty"`
}

// GetMetrics handles GET /api/metrics. The counter is always present; a
// market failure turns the response into a 502.
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.GetMetrics(r.Context())

	resp := MetricsResponse{
		OK:            snap.Err == nil,
		Configured:    snap.Configured,
		Metrics:       snap.Metrics,
		ItemsAcquired: snap.ItemsAcquired,
	}
	status := http.StatusOK
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
		status = apierror.BadGateway("").StatusCode
	}
	response.JSON(w, status, resp)
}
