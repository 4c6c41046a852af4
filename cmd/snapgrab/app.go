package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/snapgrab/snapgrab/internal/api"
	"github.com/snapgrab/snapgrab/internal/buildinfo"
	"github.com/snapgrab/snapgrab/internal/config"
	"github.com/snapgrab/snapgrab/internal/cookies"
	"github.com/snapgrab/snapgrab/internal/orchestrator"
	"github.com/snapgrab/snapgrab/internal/platform"
	"github.com/snapgrab/snapgrab/internal/proxypool"
	"github.com/snapgrab/snapgrab/internal/ratelimit"
	"github.com/snapgrab/snapgrab/internal/requestlog"
	"github.com/snapgrab/snapgrab/internal/resultcache"
	"github.com/snapgrab/snapgrab/internal/scanloop"
	"github.com/snapgrab/snapgrab/internal/service"
)

// snapgrabApp holds every long-lived component of the process.
type snapgrabApp struct {
	envCfg     *config.EnvConfig
	runtimeCfg *atomic.Pointer[config.RuntimeConfig]

	limiter *ratelimit.Limiter
	proxies *proxypool.Rotator
	jar     *cookies.Store
	cache   *resultcache.Cache

	logRepo *requestlog.Repo
	logSvc  *requestlog.Service

	engine *orchestrator.Orchestrator
	srv    *api.Server

	cron    *cron.Cron
	sweepCh chan struct{}
}

func run() error {
	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		return err
	}
	switch {
	case envCfg.AdminToken == "":
		log.Println("SNAPGRAB_ADMIN_TOKEN unset; admin API authentication is disabled")
	case config.IsWeakToken(envCfg.AdminToken):
		log.Println("SNAPGRAB_ADMIN_TOKEN looks weak; use a long random token")
	}

	app, err := newSnapgrabApp(envCfg)
	if err != nil {
		return err
	}

	serverErrCh := app.startServers()
	runtimeErr := waitForShutdown(serverErrCh)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.shutdown(ctx)

	if runtimeErr != nil {
		return fmt.Errorf("runtime server error: %w", runtimeErr)
	}
	return nil
}

func newSnapgrabApp(envCfg *config.EnvConfig) (*snapgrabApp, error) {
	app := &snapgrabApp{
		envCfg:     envCfg,
		runtimeCfg: &atomic.Pointer[config.RuntimeConfig]{},
		sweepCh:    make(chan struct{}),
	}
	rc := config.NewDefaultRuntimeConfig()
	rc.AttemptTimeout = config.Duration(envCfg.AttemptTimeout)
	app.runtimeCfg.Store(rc)

	app.limiter = ratelimit.New(rc.PerOriginDelay.Std(), rc.GlobalDelay.Std())

	app.proxies = proxypool.New(
		proxypool.WithFailureThreshold(rc.ProxyFailureThreshold),
		proxypool.WithCooldown(rc.ProxyCooldown.Std()),
	)
	if envCfg.ProxyPoolFile != "" {
		if err := app.proxies.LoadFile(envCfg.ProxyPoolFile); err != nil {
			return nil, fmt.Errorf("load proxy pool: %w", err)
		}
		log.Printf("Proxy pool loaded: %d proxies from %s", app.proxies.Size(), envCfg.ProxyPoolFile)
	}

	cookieOpts := []cookies.Option{cookies.WithThrottle(rc.CookieRegenThrottle.Std())}
	if envCfg.CookieRegenCmd != "" {
		cookieOpts = append(cookieOpts,
			cookies.WithRegenerator(cookies.CommandRegenerator{Command: envCfg.CookieRegenCmd}))
	}
	jar, err := cookies.New(envCfg.CookieDir, cookieOpts...)
	if err != nil {
		return nil, fmt.Errorf("cookie store: %w", err)
	}
	app.jar = jar

	app.cache = resultcache.New(envCfg.CacheCapacity, rc.CacheTTL.Std())

	app.logRepo = requestlog.NewRepo(
		filepath.Join(envCfg.LogDir, "resolution"),
		int64(envCfg.RequestLogDBMaxMB)*1024*1024,
		envCfg.RequestLogDBRetainCount,
	)
	if err := app.logRepo.Open(); err != nil {
		return nil, fmt.Errorf("resolution log repo: %w", err)
	}
	app.logSvc = requestlog.NewService(requestlog.ServiceConfig{
		Repo:          app.logRepo,
		QueueSize:     envCfg.RequestLogQueueSize,
		FlushBatch:    envCfg.RequestLogQueueFlushBatchSize,
		FlushInterval: envCfg.RequestLogQueueFlushInterval,
	})
	app.logSvc.SetEnabled(rc.RequestLogEnabled)

	app.engine = orchestrator.New(orchestrator.Options{
		Chains:         orchestrator.DefaultChains(envCfg.FetchTimeout),
		Pacer:          app.limiter,
		Proxies:        app.proxies,
		Cookies:        app.jar,
		Cache:          app.cache,
		Logs:           app.logSvc,
		Runtime:        app.runtimeCfg,
		MaxConcurrency: envCfg.MaxConcurrency,
	})

	cp := &service.ControlPlane{
		Info: service.SystemInfo{
			Version:   buildinfo.Version,
			GitCommit: buildinfo.GitCommit,
			BuildTime: buildinfo.BuildTime,
			StartedAt: time.Now().UTC(),
		},
		RuntimeCfg: app.runtimeCfg,
		Proxies:    app.proxies,
		Cookies:    app.jar,
		Limiter:    app.limiter,
		Cache:      app.cache,
		Logs:       app.logSvc,
		Platforms:  platformNames(),
	}

	app.srv = api.NewServer(envCfg, cp, app.engine, app.logRepo)
	app.startBackgroundServices()
	return app, nil
}

func platformNames() []string {
	all := platform.All()
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, string(p))
	}
	return names
}

func (a *snapgrabApp) startBackgroundServices() {
	a.logSvc.Start()

	// Daily forced cookie refresh, plus a jittered sweep that only
	// touches platforms whose cookie file has gone invalid.
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.envCfg.CookieRegenCron, a.refreshAllCookies); err != nil {
		// Schedule is validated at config load; this is unreachable.
		log.Printf("cookie regen schedule rejected: %v", err)
	}
	a.cron.Start()

	go scanloop.Run(a.sweepCh, a.envCfg.CookieSweepMin, a.envCfg.CookieSweepJitter, a.sweepCookies)
}

func (a *snapgrabApp) refreshAllCookies() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	for _, p := range platformNames() {
		if _, err := a.jar.EnsureValid(ctx, p, true); err != nil {
			if !errors.Is(err, cookies.ErrNoRegenerator) {
				log.Printf("[cookies] scheduled refresh %s: %v", p, err)
			}
		}
	}
}

func (a *snapgrabApp) sweepCookies() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	for p, err := range a.jar.Revalidate(ctx, platformNames()) {
		if errors.Is(err, cookies.ErrNoRegenerator) || errors.Is(err, cookies.ErrRegenThrottled) {
			continue
		}
		log.Printf("[cookies] sweep %s: %v", p, err)
	}
}

func (a *snapgrabApp) startServers() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("snapgrab API server starting on %s:%d", a.envCfg.ListenAddress, a.envCfg.Port)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func (a *snapgrabApp) shutdown(ctx context.Context) {
	if err := a.srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	close(a.sweepCh)
	cronCtx := a.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	a.logSvc.Stop()
	if err := a.logRepo.Close(); err != nil {
		log.Printf("Resolution log close error: %v", err)
	}
	a.cache.Close()
	log.Println("Server stopped")
}
