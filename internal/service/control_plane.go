// Package service holds the control-plane operations behind the admin
// API: runtime config patching, proxy pool management, cookie lifecycle
// actions, and cache administration. Handlers call its methods; business
// logic lives here, not in handlers.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snapgrab/snapgrab/internal/config"
	"github.com/snapgrab/snapgrab/internal/cookies"
	"github.com/snapgrab/snapgrab/internal/proxypool"
	"github.com/snapgrab/snapgrab/internal/ratelimit"
	"github.com/snapgrab/snapgrab/internal/requestlog"
	"github.com/snapgrab/snapgrab/internal/resultcache"
)

// ServiceError is the error contract between the control plane and the
// HTTP layer.
type ServiceError struct {
	Code    string // INVALID_ARGUMENT, NOT_FOUND, CONFLICT, INTERNAL
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

func invalidArg(msg string) *ServiceError {
	return &ServiceError{Code: "INVALID_ARGUMENT", Message: msg}
}

func notFound(msg string) *ServiceError {
	return &ServiceError{Code: "NOT_FOUND", Message: msg}
}

func conflict(msg string) *ServiceError {
	return &ServiceError{Code: "CONFLICT", Message: msg}
}

func internal(msg string, err error) *ServiceError {
	return &ServiceError{Code: "INTERNAL", Message: msg, Err: err}
}

// SystemInfo describes the running binary.
type SystemInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime string    `json:"build_time"`
	StartedAt time.Time `json:"started_at"`
}

// CookieRegenerator is the subset of the cookie store the control plane
// drives.
type CookieRegenerator interface {
	EnsureValid(ctx context.Context, platform string, force bool) (string, error)
	Statuses(platforms []string) []cookies.Status
	StatusFor(platform string) cookies.Status
	SetThrottle(d time.Duration)
}

// ControlPlane provides all control-plane operations.
type ControlPlane struct {
	Info       SystemInfo
	RuntimeCfg *atomic.Pointer[config.RuntimeConfig]

	Proxies *proxypool.Rotator
	Cookies CookieRegenerator
	Limiter *ratelimit.Limiter
	Cache   *resultcache.Cache
	Logs    *requestlog.Service

	// Platforms lists the platform names cookie operations act on.
	Platforms []string

	configMu sync.Mutex // serializes runtime config patches
}

// GetSystemInfo returns static process information.
func (s *ControlPlane) GetSystemInfo() SystemInfo {
	return s.Info
}

// GetRuntimeConfig returns the live runtime configuration.
func (s *ControlPlane) GetRuntimeConfig() *config.RuntimeConfig {
	return s.RuntimeCfg.Load()
}
