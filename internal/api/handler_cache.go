package api

import (
	"net/http"

	"github.com/snapgrab/snapgrab/internal/service"
)

// HandleCacheStats handles GET /api/v1/cache/stats.
func HandleCacheStats(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cp.CacheStats())
	})
}

// HandleFlushCache handles POST /api/v1/cache/actions/flush.
func HandleFlushCache(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]int{"flushed": cp.FlushCache()})
	})
}
