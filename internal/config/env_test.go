package config

import (
	"strings"
	"testing"
	"time"
)

// setRequiredEnv defines the variables that must exist for a load to
// succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SNAPGRAB_ADMIN_TOKEN", "a9f73d18e5249b6a35f7419d11c603e2")
}

func TestLoadEnvConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("LoadEnvConfig: %v", err)
	}
	if cfg.Port != 8750 {
		t.Fatalf("Port = %d, want 8750", cfg.Port)
	}
	if cfg.AttemptTimeout != 30*time.Second {
		t.Fatalf("AttemptTimeout = %v, want 30s", cfg.AttemptTimeout)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Fatalf("FetchTimeout = %v, want 20s", cfg.FetchTimeout)
	}
	if cfg.CacheCapacity != 4096 {
		t.Fatalf("CacheCapacity = %d, want 4096", cfg.CacheCapacity)
	}
	if cfg.CookieRegenCron != "0 6 * * *" {
		t.Fatalf("CookieRegenCron = %q", cfg.CookieRegenCron)
	}
	if cfg.ProxyPoolFile != "" {
		t.Fatalf("ProxyPoolFile = %q, want empty default", cfg.ProxyPoolFile)
	}
}

func TestLoadEnvConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPGRAB_PORT", "9000")
	t.Setenv("SNAPGRAB_ATTEMPT_TIMEOUT", "45s")
	t.Setenv("SNAPGRAB_FETCH_TIMEOUT", "10s")
	t.Setenv("SNAPGRAB_PROXY_POOL_FILE", "/etc/snapgrab/proxies.yaml")
	t.Setenv("SNAPGRAB_COOKIE_REGEN_SCHEDULE", "30 3 * * *")

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("LoadEnvConfig: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("Port = %d", cfg.Port)
	}
	if cfg.AttemptTimeout != 45*time.Second {
		t.Fatalf("AttemptTimeout = %v", cfg.AttemptTimeout)
	}
	if cfg.ProxyPoolFile != "/etc/snapgrab/proxies.yaml" {
		t.Fatalf("ProxyPoolFile = %q", cfg.ProxyPoolFile)
	}
}

func TestLoadEnvConfigMissingAdminToken(t *testing.T) {
	_, err := LoadEnvConfig()
	if err == nil || !strings.Contains(err.Error(), "SNAPGRAB_ADMIN_TOKEN") {
		t.Fatalf("err = %v, want missing admin token", err)
	}
}

func TestLoadEnvConfigInvalidValuesCollected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPGRAB_PORT", "notaport")
	t.Setenv("SNAPGRAB_ATTEMPT_TIMEOUT", "soon")
	t.Setenv("SNAPGRAB_COOKIE_REGEN_SCHEDULE", "not a cron")

	_, err := LoadEnvConfig()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, fragment := range []string{"SNAPGRAB_PORT", "SNAPGRAB_ATTEMPT_TIMEOUT", "SNAPGRAB_COOKIE_REGEN_SCHEDULE"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error should mention %s, got: %v", fragment, err)
		}
	}
}

func TestLoadEnvConfigPortRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPGRAB_PORT", "70000")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
}

func TestLoadEnvConfigFetchLongerThanAttempt(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPGRAB_ATTEMPT_TIMEOUT", "10s")
	t.Setenv("SNAPGRAB_FETCH_TIMEOUT", "30s")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("fetch timeout above attempt timeout should fail validation")
	}
}

func TestLoadEnvConfigQueueBatchRelation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPGRAB_REQUEST_LOG_QUEUE_SIZE", "100")
	t.Setenv("SNAPGRAB_REQUEST_LOG_QUEUE_FLUSH_BATCH_SIZE", "80")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("queue smaller than 2x batch should fail validation")
	}
}

func TestLoadEnvConfigEmptyTokenAllowed(t *testing.T) {
	t.Setenv("SNAPGRAB_ADMIN_TOKEN", "")
	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("LoadEnvConfig: %v", err)
	}
	if cfg.AdminToken != "" {
		t.Fatalf("AdminToken = %q, want empty (auth disabled)", cfg.AdminToken)
	}
}
