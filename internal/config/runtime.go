package config

import "time"

// RuntimeConfig holds all hot-updatable global settings.
// Served via GET /api/v1/system/config and replaced via PUT.
type RuntimeConfig struct {
	// Pacing
	PerOriginDelay Duration `json:"per_origin_delay"`
	GlobalDelay    Duration `json:"global_delay"`

	// Result cache
	CacheTTL Duration `json:"cache_ttl"`

	// Proxy pool
	ProxyFailureThreshold int      `json:"proxy_failure_threshold"`
	ProxyCooldown         Duration `json:"proxy_cooldown"`

	// Cookies
	CookieRegenThrottle Duration `json:"cookie_regen_throttle"`

	// Extraction
	AttemptTimeout Duration `json:"attempt_timeout"`
	MobileProfile  bool     `json:"mobile_profile"`

	// Request log
	RequestLogEnabled bool `json:"request_log_enabled"`
}

// NewDefaultRuntimeConfig returns a RuntimeConfig populated with the
// default values.
func NewDefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		PerOriginDelay: Duration(2 * time.Second),
		GlobalDelay:    Duration(1 * time.Second),

		CacheTTL: Duration(300 * time.Second),

		ProxyFailureThreshold: 3,
		ProxyCooldown:         Duration(5 * time.Minute),

		CookieRegenThrottle: Duration(60 * time.Second),

		AttemptTimeout: Duration(30 * time.Second),
		MobileProfile:  false,

		RequestLogEnabled: true,
	}
}

// Validate reports the first problem with a candidate runtime config, or
// nil when it is acceptable.
func (c *RuntimeConfig) Validate() error {
	switch {
	case c.PerOriginDelay <= 0:
		return validationError("per_origin_delay must be positive")
	case c.GlobalDelay <= 0:
		return validationError("global_delay must be positive")
	case c.CacheTTL <= 0:
		return validationError("cache_ttl must be positive")
	case c.ProxyFailureThreshold <= 0:
		return validationError("proxy_failure_threshold must be positive")
	case c.ProxyCooldown <= 0:
		return validationError("proxy_cooldown must be positive")
	case c.CookieRegenThrottle <= 0:
		return validationError("cookie_regen_throttle must be positive")
	case c.AttemptTimeout <= 0:
		return validationError("attempt_timeout must be positive")
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return "config: " + string(e) }
