package handler

import (
	"errors"
	"log"
	"net/http"

	"osrs-vault-api/internal/service"
	"osrs-vault-api/pkg/apierror"
	"osrs-vault-api/pkg/response"
)

// maxBodyBytes bounds admin request bodies.
const maxBodyBytes = 1 << 20

// writeServiceError maps service errors onto API errors.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		response.Error(w, apierror.NotConfigured("Admin token not configured"))
	case errors.Is(err, service.ErrUnauthorized):
		response.Error(w, apierror.Unauthorized(""))
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, apierror.BadRequest("Invalid JSON"))
	default:
		log.Printf("[Handler] %s %s failed: %v", r.Method, r.URL.Path, err)
		response.Error(w, apierror.InternalError(failure))
	}
}
