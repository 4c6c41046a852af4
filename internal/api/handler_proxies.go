package api

import (
	"net/http"

	"github.com/snapgrab/snapgrab/internal/service"
)

// HandleListProxies handles GET /api/v1/proxies.
func HandleListProxies(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pg, ok := parsePaginationOrWriteInvalid(w, r)
		if !ok {
			return
		}
		snaps, err := cp.ListProxies()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WritePage(w, http.StatusOK, snaps, pg)
	})
}

type addProxyRequest struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// HandleAddProxy handles POST /api/v1/proxies.
func HandleAddProxy(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body addProxyRequest
		if err := DecodeBody(r, &body); err != nil {
			writeDecodeBodyError(w, err)
			return
		}
		if err := cp.AddProxy(body.URL, body.Label); err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]string{"url": body.URL})
	})
}

// HandleRemoveProxy handles DELETE /api/v1/proxies?url=...
// The proxy URL rides in a query parameter because it contains slashes.
func HandleRemoveProxy(cp *service.ControlPlane) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			writeInvalidArgument(w, "url: query parameter is required")
			return
		}
		if err := cp.RemoveProxy(rawURL); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// HandleReloadProxies handles POST /api/v1/proxies/actions/reload.
// Re-reads the configured pool file, keeping health state for proxies
// that survive the reload.
func HandleReloadProxies(cp *service.ControlPlane, poolFile string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := cp.ReloadProxies(poolFile)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]int{"pool_size": n})
	})
}
