package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/snapgrab/snapgrab/internal/config"
	"github.com/snapgrab/snapgrab/internal/requestlog"
	"github.com/snapgrab/snapgrab/internal/service"
)

// Server wraps the HTTP server and mux for the snapgrab API.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates an API server wired with all routes.
func NewServer(
	envCfg *config.EnvConfig,
	cp *service.ControlPlane,
	resolver Resolver,
	logRepo *requestlog.Repo,
) *Server {
	mux := http.NewServeMux()

	// Public (no auth)
	mux.Handle("GET /healthz", HandleHealthz())

	// Authenticated routes
	authed := http.NewServeMux()

	authed.Handle("POST /api/v1/resolve", HandleResolve(resolver))

	authed.Handle("GET /api/v1/system/info", HandleSystemInfo(cp))
	authed.Handle("GET /api/v1/system/config", HandleSystemConfig(cp.RuntimeCfg))
	authed.Handle("GET /api/v1/system/config/default", HandleSystemDefaultConfig())
	authed.Handle("GET /api/v1/system/config/env", HandleSystemEnvConfig(envCfg))
	authed.Handle("PATCH /api/v1/system/config", HandlePatchSystemConfig(cp))

	// Proxy pool.
	authed.Handle("GET /api/v1/proxies", HandleListProxies(cp))
	authed.Handle("POST /api/v1/proxies", HandleAddProxy(cp))
	authed.Handle("DELETE /api/v1/proxies", HandleRemoveProxy(cp))
	authed.Handle("POST /api/v1/proxies/actions/reload", HandleReloadProxies(cp, envCfg.ProxyPoolFile))

	// Cookies.
	authed.Handle("GET /api/v1/cookies", HandleCookieStatuses(cp))
	authed.Handle("POST /api/v1/cookies/{platform}/actions/regenerate", HandleRegenerateCookie(cp))

	// Result cache.
	authed.Handle("GET /api/v1/cache/stats", HandleCacheStats(cp))
	authed.Handle("POST /api/v1/cache/actions/flush", HandleFlushCache(cp))

	// Resolution log endpoints (registered when the repo is available).
	if logRepo != nil {
		authed.Handle("GET /api/v1/resolution-logs", HandleListResolutionLogs(logRepo))
		authed.Handle("GET /api/v1/resolution-logs/{log_id}", HandleGetResolutionLog(logRepo))
	}

	limitedAuthed := RequestBodyLimitMiddleware(int64(envCfg.APIMaxBodyBytes), authed)
	mux.Handle("/api/", AuthMiddleware(envCfg.AdminToken, limitedAuthed))

	srv := &http.Server{
		Addr:    net.JoinHostPort(envCfg.ListenAddress, strconv.Itoa(envCfg.Port)),
		Handler: mux,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}
