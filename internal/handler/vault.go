package handler

import (
	"io"
	"net/http"

	"osrs-vault-api/internal/middleware"
	"osrs-vault-api/internal/service"
	"osrs-vault-api/pkg/apierror"
	"osrs-vault-api/pkg/response"
)

// VaultHandler serves the vault state and the counter reset.
type VaultHandler struct {
	vault *service.VaultService
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(vault *service.VaultService) *VaultHandler {
	return &VaultHandler{vault: vault}
}

// GetState handles GET /api/state
func (h *VaultHandler) GetState(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.vault.GetState(r.Context()))
}

// SetState handles POST /api/state
func (h *VaultHandler) SetState(w http.ResponseWriter, r *http.Request) {
	token := middleware.AdminToken(r)
	// Reject bad credentials before buffering the body.
	if err := h.vault.Authorize(token); err != nil {
		writeServiceError(w, r, err, "Failed to save")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, apierror.BadRequest("failed to read request body"))
		return
	}
	defer r.Body.Close()

	result, err := h.vault.SetState(r.Context(), token, body)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save")
		return
	}

	response.OK(w, map[string]interface{}{
		"ok":         true,
		"snapshotId": result.SnapshotID,
	})
}

// ResetCounter handles POST /api/metrics/reset
func (h *VaultHandler) ResetCounter(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.ResetCounter(r.Context(), middleware.AdminToken(r)); err != nil {
		writeServiceError(w, r, err, "Reset failed")
		return
	}
	response.OK(w, map[string]interface{}{"ok": true})
}
