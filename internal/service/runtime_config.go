package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/snapgrab/snapgrab/internal/config"
)

// mergePatch is the constrained PATCH body format: a non-empty JSON
// object whose keys are all known fields and whose values are non-null.
type mergePatch map[string]any

func parseMergePatch(patchJSON json.RawMessage) (mergePatch, *ServiceError) {
	var patch map[string]any
	if err := json.Unmarshal(patchJSON, &patch); err != nil {
		return nil, invalidArg("invalid JSON: " + err.Error())
	}
	if len(patch) == 0 {
		return nil, invalidArg("empty patch")
	}
	return mergePatch(patch), nil
}

func (p mergePatch) validateFields(allowed map[string]bool) *ServiceError {
	for key, val := range p {
		if !allowed[key] {
			return invalidArg(fmt.Sprintf("unknown config field: %q", key))
		}
		if val == nil {
			return invalidArg(fmt.Sprintf("null value not allowed for field: %q", key))
		}
	}
	return nil
}

func (p mergePatch) optionalBool(field string) (bool, bool, *ServiceError) {
	raw, ok := p[field]
	if !ok {
		return false, false, nil
	}
	value, ok := raw.(bool)
	if !ok {
		return false, true, invalidArg(fmt.Sprintf("%s: must be a boolean", field))
	}
	return value, true, nil
}

func (p mergePatch) optionalInt(field string) (int, bool, *ServiceError) {
	raw, ok := p[field]
	if !ok {
		return 0, false, nil
	}
	value, ok := raw.(float64)
	if !ok || value != float64(int(value)) {
		return 0, true, invalidArg(fmt.Sprintf("%s: must be an integer", field))
	}
	return int(value), true, nil
}

func (p mergePatch) optionalDurationString(field string) (time.Duration, bool, *ServiceError) {
	raw, ok := p[field]
	if !ok {
		return 0, false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return 0, true, invalidArg(fmt.Sprintf("%s: must be a duration string", field))
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, true, invalidArg(fmt.Sprintf("%s: %s", field, err.Error()))
	}
	return d, true, nil
}

var runtimeConfigFields = map[string]bool{
	"per_origin_delay":        true,
	"global_delay":            true,
	"cache_ttl":               true,
	"proxy_failure_threshold": true,
	"proxy_cooldown":          true,
	"cookie_regen_throttle":   true,
	"attempt_timeout":         true,
	"mobile_profile":          true,
	"request_log_enabled":     true,
}

// PatchRuntimeConfig applies a merge patch to the live runtime config.
// The patch is validated as a whole before anything is applied; on
// success the new config is swapped in atomically and pushed to the
// components that cache derived values.
func (s *ControlPlane) PatchRuntimeConfig(patchJSON json.RawMessage) (*config.RuntimeConfig, error) {
	s.configMu.Lock()
	defer s.configMu.Unlock()

	patch, verr := parseMergePatch(patchJSON)
	if verr != nil {
		return nil, verr
	}
	if verr := patch.validateFields(runtimeConfigFields); verr != nil {
		return nil, verr
	}

	newCfg := *s.RuntimeCfg.Load()
	if verr := applyRuntimePatch(patch, &newCfg); verr != nil {
		return nil, verr
	}
	if err := newCfg.Validate(); err != nil {
		return nil, invalidArg(err.Error())
	}

	s.RuntimeCfg.Store(&newCfg)
	s.propagateRuntimeConfig(&newCfg)
	return &newCfg, nil
}

func applyRuntimePatch(patch mergePatch, cfg *config.RuntimeConfig) *ServiceError {
	durations := []struct {
		field string
		dst   *config.Duration
	}{
		{"per_origin_delay", &cfg.PerOriginDelay},
		{"global_delay", &cfg.GlobalDelay},
		{"cache_ttl", &cfg.CacheTTL},
		{"proxy_cooldown", &cfg.ProxyCooldown},
		{"cookie_regen_throttle", &cfg.CookieRegenThrottle},
		{"attempt_timeout", &cfg.AttemptTimeout},
	}
	for _, d := range durations {
		v, ok, verr := patch.optionalDurationString(d.field)
		if verr != nil {
			return verr
		}
		if ok {
			*d.dst = config.Duration(v)
		}
	}

	if v, ok, verr := patch.optionalInt("proxy_failure_threshold"); verr != nil {
		return verr
	} else if ok {
		cfg.ProxyFailureThreshold = v
	}
	if v, ok, verr := patch.optionalBool("mobile_profile"); verr != nil {
		return verr
	} else if ok {
		cfg.MobileProfile = v
	}
	if v, ok, verr := patch.optionalBool("request_log_enabled"); verr != nil {
		return verr
	} else if ok {
		cfg.RequestLogEnabled = v
	}
	return nil
}

// propagateRuntimeConfig pushes settings into components that keep their
// own copies. Components reading through the atomic pointer (the chain
// orchestrator) need no push.
func (s *ControlPlane) propagateRuntimeConfig(cfg *config.RuntimeConfig) {
	if s.Limiter != nil {
		s.Limiter.SetDelays(cfg.PerOriginDelay.Std(), cfg.GlobalDelay.Std())
	}
	if s.Proxies != nil {
		s.Proxies.SetHealthPolicy(cfg.ProxyFailureThreshold, cfg.ProxyCooldown.Std())
	}
	if s.Cookies != nil {
		s.Cookies.SetThrottle(cfg.CookieRegenThrottle.Std())
	}
	if s.Logs != nil {
		s.Logs.SetEnabled(cfg.RequestLogEnabled)
	}
}
