package api

import (
	"net/http"
	"sync/atomic"

	"github.com/snapgrab/snapgrab/internal/config"
	"github.com/snapgrab/snapgrab/internal/service"
)

// HandleSystemInfo returns a handler for GET /api/v1/system/info.
func HandleSystemInfo(cp *service.ControlPlane) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cp.GetSystemInfo())
	}
}

// HandleSystemConfig returns a handler for GET /api/v1/system/config.
func HandleSystemConfig(runtimeCfg *atomic.Pointer[config.RuntimeConfig]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runtimeCfg == nil {
			WriteJSON(w, http.StatusOK, nil)
			return
		}
		WriteJSON(w, http.StatusOK, runtimeCfg.Load())
	}
}

// HandleSystemDefaultConfig returns a handler for GET /api/v1/system/config/default.
func HandleSystemDefaultConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, config.NewDefaultRuntimeConfig())
	}
}

// envConfigView is the safe-to-expose projection of EnvConfig. The admin
// token itself never leaves the process.
type envConfigView struct {
	CookieDir         string `json:"cookie_dir"`
	StateDir          string `json:"state_dir"`
	LogDir            string `json:"log_dir"`
	ListenAddress     string `json:"listen_address"`
	Port              int    `json:"port"`
	APIMaxBodyBytes   int    `json:"api_max_body_bytes"`
	AttemptTimeout    string `json:"attempt_timeout"`
	FetchTimeout      string `json:"fetch_timeout"`
	MaxConcurrency    int    `json:"max_concurrency"`
	CookieRegenCron   string `json:"cookie_regen_schedule"`
	CookieSweepMin    string `json:"cookie_sweep_min_interval"`
	CookieSweepJitter string `json:"cookie_sweep_jitter"`
	ProxyPoolFile     string `json:"proxy_pool_file,omitempty"`
	CacheCapacity     int    `json:"cache_capacity"`
	AuthEnabled       bool   `json:"auth_enabled"`
}

// HandleSystemEnvConfig returns a handler for GET /api/v1/system/config/env.
func HandleSystemEnvConfig(envCfg *config.EnvConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if envCfg == nil {
			WriteJSON(w, http.StatusOK, nil)
			return
		}
		WriteJSON(w, http.StatusOK, envConfigView{
			CookieDir:         envCfg.CookieDir,
			StateDir:          envCfg.StateDir,
			LogDir:            envCfg.LogDir,
			ListenAddress:     envCfg.ListenAddress,
			Port:              envCfg.Port,
			APIMaxBodyBytes:   envCfg.APIMaxBodyBytes,
			AttemptTimeout:    envCfg.AttemptTimeout.String(),
			FetchTimeout:      envCfg.FetchTimeout.String(),
			MaxConcurrency:    envCfg.MaxConcurrency,
			CookieRegenCron:   envCfg.CookieRegenCron,
			CookieSweepMin:    envCfg.CookieSweepMin.String(),
			CookieSweepJitter: envCfg.CookieSweepJitter.String(),
			ProxyPoolFile:     envCfg.ProxyPoolFile,
			CacheCapacity:     envCfg.CacheCapacity,
			AuthEnabled:       envCfg.AdminToken != "",
		})
	}
}

// HandlePatchSystemConfig returns a handler for PATCH /api/v1/system/config.
func HandlePatchSystemConfig(cp *service.ControlPlane) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readRawBodyOrWriteInvalid(w, r)
		if !ok {
			return
		}
		result, err := cp.PatchRuntimeConfig(body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}
