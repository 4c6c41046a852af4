package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snapgrab/snapgrab/internal/config"
	"github.com/snapgrab/snapgrab/internal/cookies"
	"github.com/snapgrab/snapgrab/internal/proxypool"
	"github.com/snapgrab/snapgrab/internal/ratelimit"
)

func newTestControlPlane(t *testing.T) *ControlPlane {
	t.Helper()

	ptr := &atomic.Pointer[config.RuntimeConfig]{}
	ptr.Store(config.NewDefaultRuntimeConfig())

	jar, err := cookies.New(t.TempDir(), cookies.WithRegenerator(
		cookies.RegeneratorFunc(func(_ context.Context, _, path string) error {
			return os.WriteFile(path, []byte("session=x\n"), 0o600)
		}),
	))
	if err != nil {
		t.Fatalf("cookies.New: %v", err)
	}

	return &ControlPlane{
		Info:       SystemInfo{Version: "test", StartedAt: time.Now()},
		RuntimeCfg: ptr,
		Proxies:    proxypool.New(),
		Cookies:    jar,
		Limiter:    ratelimit.New(0, 0),
		Platforms:  []string{"tiktok", "youtube"},
	}
}

func patchBody(t *testing.T, patch map[string]any) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("marshal patch: %v", err)
	}
	return body
}

func TestPatchRuntimeConfigHotUpdate(t *testing.T) {
	cp := newTestControlPlane(t)

	updated, err := cp.PatchRuntimeConfig(patchBody(t, map[string]any{
		"per_origin_delay":        "5s",
		"proxy_failure_threshold": 7,
		"mobile_profile":          true,
		"request_log_enabled":     false,
	}))
	if err != nil {
		t.Fatalf("PatchRuntimeConfig: %v", err)
	}

	if updated.PerOriginDelay.Std() != 5*time.Second {
		t.Fatalf("PerOriginDelay = %v", updated.PerOriginDelay.Std())
	}
	if updated.ProxyFailureThreshold != 7 {
		t.Fatalf("ProxyFailureThreshold = %d", updated.ProxyFailureThreshold)
	}
	if !updated.MobileProfile || updated.RequestLogEnabled {
		t.Fatalf("bools not applied: %+v", updated)
	}

	// Untouched fields keep their defaults.
	if updated.GlobalDelay.Std() != time.Second {
		t.Fatalf("GlobalDelay = %v, want default", updated.GlobalDelay.Std())
	}

	// The live pointer sees the new config.
	if cp.RuntimeCfg.Load().PerOriginDelay.Std() != 5*time.Second {
		t.Fatal("patch not visible through the atomic pointer")
	}
}

func TestPatchRuntimeConfigRejectsBadPatches(t *testing.T) {
	cp := newTestControlPlane(t)
	before := *cp.RuntimeCfg.Load()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"empty object", `{}`},
		{"unknown field", `{"nope": 1}`},
		{"null value", `{"mobile_profile": null}`},
		{"wrong type", `{"per_origin_delay": 5}`},
		{"bad duration", `{"cache_ttl": "fast"}`},
		{"fractional int", `{"proxy_failure_threshold": 1.5}`},
		{"fails validation", `{"attempt_timeout": "-1s"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cp.PatchRuntimeConfig(json.RawMessage(tc.body))
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) || svcErr.Code != "INVALID_ARGUMENT" {
				t.Fatalf("err = %v, want INVALID_ARGUMENT", err)
			}
		})
	}

	if *cp.RuntimeCfg.Load() != before {
		t.Fatal("rejected patches must not mutate the live config")
	}
}

func TestProxyLifecycle(t *testing.T) {
	cp := newTestControlPlane(t)

	if err := cp.AddProxy("socks5://p1.example.com:1080", "dc-1"); err != nil {
		t.Fatalf("AddProxy: %v", err)
	}

	err := cp.AddProxy("socks5://p1.example.com:1080", "")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != "CONFLICT" {
		t.Fatalf("duplicate add err = %v, want CONFLICT", err)
	}

	if err := cp.AddProxy("ftp://p2.example.com:21", ""); err == nil {
		t.Fatal("bad scheme should be rejected")
	}

	snaps, err := cp.ListProxies()
	if err != nil {
		t.Fatalf("ListProxies: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Label != "dc-1" {
		t.Fatalf("snapshots = %+v", snaps)
	}

	if err := cp.RemoveProxy("socks5://p1.example.com:1080"); err != nil {
		t.Fatalf("RemoveProxy: %v", err)
	}
	err = cp.RemoveProxy("socks5://p1.example.com:1080")
	if !errors.As(err, &svcErr) || svcErr.Code != "NOT_FOUND" {
		t.Fatalf("second remove err = %v, want NOT_FOUND", err)
	}
}

func TestReloadProxies(t *testing.T) {
	cp := newTestControlPlane(t)

	path := filepath.Join(t.TempDir(), "proxies.yaml")
	pool := "proxies:\n  - url: http://p1.example.com:8080\n  - url: http://p2.example.com:8080\n    label: backup\n"
	if err := os.WriteFile(path, []byte(pool), 0o600); err != nil {
		t.Fatal(err)
	}

	n, err := cp.ReloadProxies(path)
	if err != nil {
		t.Fatalf("ReloadProxies: %v", err)
	}
	if n != 2 {
		t.Fatalf("pool size = %d, want 2", n)
	}

	if _, err := cp.ReloadProxies(""); err == nil {
		t.Fatal("empty path should be rejected")
	}
}

func TestRegenerateCookie(t *testing.T) {
	cp := newTestControlPlane(t)
	ctx := context.Background()

	st, err := cp.RegenerateCookie(ctx, "tiktok", false)
	if err != nil {
		t.Fatalf("RegenerateCookie: %v", err)
	}
	if !st.Valid || st.SizeBytes == 0 {
		t.Fatalf("status = %+v, want valid", st)
	}

	_, err = cp.RegenerateCookie(ctx, "myspace", false)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != "NOT_FOUND" {
		t.Fatalf("unknown platform err = %v, want NOT_FOUND", err)
	}

	// The file is now valid, so a forced run regenerates while an
	// immediate second force stays inside the throttle only when not
	// forced.
	if _, err := cp.RegenerateCookie(ctx, "tiktok", true); err != nil {
		t.Fatalf("forced regeneration: %v", err)
	}

	if got := cp.CookieStatuses(); len(got) != 2 {
		t.Fatalf("statuses = %d, want 2", len(got))
	}
}
