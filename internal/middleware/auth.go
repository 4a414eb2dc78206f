package middleware

import (
	"errors"
	"net/http"
	"strings"

	"osrs-vault-api/internal/service"
	"osrs-vault-api/pkg/apierror"
)

// AdminToken extracts the admin token from a request. A Bearer
// Authorization header wins over X-Admin-Token. The result is trimmed.
func AdminToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) >= 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
}

// RequireAdmin rejects requests that do not carry the admin token.
func RequireAdmin(auth *service.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := auth.Authorize(AdminToken(r))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, service.ErrNotConfigured):
				writeError(w, apierror.NotConfigured("Admin token not configured"))
			default:
				writeError(w, apierror.Unauthorized(""))
			}
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
