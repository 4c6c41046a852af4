package api

import (
	"net/http"

	"github.com/snapgrab/snapgrab/internal/service"
)

// HandleCookieStatuses handles GET /api/v1/cookies.
func HandleCookieStatuses(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cp.CookieStatuses())
	})
}

// HandleRegenerateCookie handles
// POST /api/v1/cookies/{platform}/actions/regenerate.
// The optional force query parameter bypasses the regeneration throttle.
func HandleRegenerateCookie(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		platform := r.PathValue("platform")
		if platform == "" {
			writeInvalidArgument(w, "platform: is required")
			return
		}
		force, ok := parseBoolQueryOrWriteInvalid(w, r, "force")
		if !ok {
			return
		}

		st, err := cp.RegenerateCookie(r.Context(), platform, force != nil && *force)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, st)
	})
}
