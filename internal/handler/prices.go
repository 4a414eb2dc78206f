package handler

import (
	"net/http"

	"osrs-vault-api/internal/service"
	"osrs-vault-api/pkg/response"
)

// PriceHandler serves the vault valuation.
type PriceHandler struct {
	prices *service.PriceService
}

// NewPriceHandler creates a new price handler.
func NewPriceHandler(prices *service.PriceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// GetPrices handles GET /api/prices?force=1
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"
	response.OK(w, h.prices.Report(r.Context(), force))
}
