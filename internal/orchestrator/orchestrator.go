// Package orchestrator runs the resolution chain: cache lookup, pacing,
// proxy selection, strategy attempts with per-attempt timeouts, failure
// classification, and result caching. A chain run stops at the first
// strategy that yields a valid descriptor.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/snapgrab/snapgrab/internal/config"
	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/platform"
	"github.com/snapgrab/snapgrab/internal/proxypool"
	"github.com/snapgrab/snapgrab/internal/requestlog"
	"github.com/snapgrab/snapgrab/internal/selector"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

// Pacer throttles outbound attempts per origin.
type Pacer interface {
	Wait(ctx context.Context, origin string) error
}

// ProxyPool hands out egress proxies and tracks their health.
type ProxyPool interface {
	Pick() *proxypool.Entry
	MarkFailed(e *proxypool.Entry, cause error)
	MarkSucceeded(e *proxypool.Entry)
}

// CookieJar exposes the cookie lifecycle the chain needs.
type CookieJar interface {
	IsValid(platform string) bool
	Path(platform string) string
	EnsureValid(ctx context.Context, platform string, force bool) (string, error)
}

// ResultCache stores resolved descriptors by fingerprint.
type ResultCache interface {
	Get(fp media.Fingerprint) (*media.Descriptor, bool)
	SetWithTTL(fp media.Fingerprint, d *media.Descriptor, ttl time.Duration)
}

// LogEmitter receives one row per completed resolution.
type LogEmitter interface {
	Emit(row requestlog.LogRow)
}

// Orchestrator owns the per-platform strategy chains and their shared
// collaborators.
type Orchestrator struct {
	chains  *Chains
	pacer   Pacer
	proxies ProxyPool
	jar     CookieJar
	cache   ResultCache
	logs    LogEmitter
	runtime *atomic.Pointer[config.RuntimeConfig]

	// sem bounds concurrent chain runs; nil means unbounded.
	sem chan struct{}

	now func() time.Time
}

// Options wires an Orchestrator. Chains, Pacer and Runtime are required;
// the rest degrade gracefully when nil (no proxies, no cookies, no
// cache, no logging).
type Options struct {
	Chains         *Chains
	Pacer          Pacer
	Proxies        ProxyPool
	Cookies        CookieJar
	Cache          ResultCache
	Logs           LogEmitter
	Runtime        *atomic.Pointer[config.RuntimeConfig]
	MaxConcurrency int
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		chains:  opts.Chains,
		pacer:   opts.Pacer,
		proxies: opts.Proxies,
		jar:     opts.Cookies,
		cache:   opts.Cache,
		logs:    opts.Logs,
		runtime: opts.Runtime,
		now:     time.Now,
	}
	if o.runtime == nil {
		ptr := &atomic.Pointer[config.RuntimeConfig]{}
		ptr.Store(config.NewDefaultRuntimeConfig())
		o.runtime = ptr
	}
	if opts.MaxConcurrency > 0 {
		o.sem = make(chan struct{}, opts.MaxConcurrency)
	}
	return o
}

// Resolve runs the strategy chain for one request.
// The returned error is always a *strategy.ExtractionError.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	start := o.now()
	runID := uuid.NewString()

	host, xerr := validateSourceURL(req.URL)
	if xerr != nil {
		o.emitFailure(runID, req, "", "", start, nil, xerr)
		return nil, xerr
	}

	plat := platform.Detect(req.URL)
	chain := o.chains.For(plat)
	if len(chain) == 0 {
		xerr := strategy.NewError(strategy.KindUnsupportedPlatform,
			fmt.Sprintf("no extraction chain for platform %q", plat), nil)
		o.emitFailure(runID, req, plat, "", start, nil, xerr)
		return nil, xerr
	}

	fp := media.FingerprintURL(req.URL)
	rc := o.runtime.Load()

	if o.cache != nil && !req.NoCache {
		if d, ok := o.cache.Get(fp); ok {
			res, xerr := o.finish(runID, req, plat, fp, d, true, nil, nil, start)
			if xerr != nil {
				return nil, xerr
			}
			return res, nil
		}
	}

	if o.sem != nil {
		select {
		case o.sem <- struct{}{}:
			defer func() { <-o.sem }()
		case <-ctx.Done():
			xerr := strategy.Classify(ctx.Err())
			o.emitFailure(runID, req, plat, fp.Hex(), start, nil, xerr)
			return nil, xerr
		}
	}

	var attempts []strategy.Result
	var skipped []string
	regenerated := false

	for _, ex := range chain {
		// Retry the same strategy once after a successful forced cookie
		// regeneration; everything else moves the chain forward.
		for try := 0; try < 2; try++ {
			needsAuth := ex.RequiresAuth() && req.CookieBlob == ""
			if needsAuth && (o.jar == nil || !o.jar.IsValid(string(plat))) {
				// Not invoked, so not an attempt: the strategy is set aside
				// until cookies come back.
				skipped = append(skipped, ex.Name())
				break
			}

			if o.pacer != nil {
				if err := o.pacer.Wait(ctx, host); err != nil {
					xerr := strategy.Classify(err)
					o.emitFailure(runID, req, plat, fp.Hex(), start, attempts, xerr)
					return nil, xerr
				}
			}

			var entry *proxypool.Entry
			var proxyURL *url.URL
			if o.proxies != nil {
				if entry = o.proxies.Pick(); entry != nil {
					proxyURL = entry.URL
				}
			}

			sc := &strategy.Context{
				SourceURL:  req.URL,
				Mobile:     req.Mobile || rc.MobileProfile,
				CookieBlob: req.CookieBlob,
				Quality:    req.Quality,
				AudioOnly:  req.AudioOnly,
				ProxyURL:   proxyURL,
			}
			if o.jar != nil && o.jar.IsValid(string(plat)) {
				sc.CookiePath = o.jar.Path(string(plat))
			}

			attemptCtx, cancel := context.WithTimeout(ctx, rc.AttemptTimeout.Std())
			began := o.now()
			d, err := ex.Attempt(attemptCtx, sc)
			cancel()
			elapsed := o.now().Sub(began)

			if err == nil {
				if d.Platform == "" {
					d.Platform = string(plat)
				}
				if vErr := d.Validate(platform.MediaURLAllowed); vErr != nil {
					// Drop the result and advance: a descriptor pointing at a
					// host outside the platform's CDN set is never served.
					attempts = append(attempts, strategy.Result{
						Strategy: ex.Name(),
						Err:      strategy.NewError(strategy.KindBlocked, "media url outside platform allow-list", vErr),
						Elapsed:  elapsed,
					})
					break
				}

				if o.proxies != nil {
					o.proxies.MarkSucceeded(entry)
				}
				if o.cache != nil {
					o.cache.SetWithTTL(fp, d, rc.CacheTTL.Std())
				}

				attempts = append(attempts, strategy.Result{Strategy: ex.Name(), Elapsed: elapsed})
				res, xerr := o.finish(runID, req, plat, fp, d, false, attempts, skipped, start)
				if xerr != nil {
					return nil, xerr
				}
				return res, nil
			}

			xerr := strategy.Classify(err)
			attempts = append(attempts, strategy.Result{Strategy: ex.Name(), Err: xerr, Elapsed: elapsed})

			if xerr.Kind.Fatal() {
				o.emitFailure(runID, req, plat, fp.Hex(), start, attempts, xerr)
				return nil, xerr
			}
			if ctx.Err() != nil {
				cerr := strategy.Classify(ctx.Err())
				o.emitFailure(runID, req, plat, fp.Hex(), start, attempts, cerr)
				return nil, cerr
			}
			// A block or rate limit through a proxy counts against that
			// proxy; plain network flakiness does not bench it.
			if (xerr.Kind == strategy.KindRateLimited || xerr.Kind == strategy.KindBlocked) && o.proxies != nil {
				o.proxies.MarkFailed(entry, err)
			}

			if xerr.Kind == strategy.KindAuthRequired && o.jar != nil && !regenerated {
				regenerated = true
				if _, rerr := o.jar.EnsureValid(ctx, string(plat), true); rerr == nil {
					continue // retry this strategy with fresh cookies
				}
			}
			break
		}
	}

	xerr = strategy.NewError(strategy.KindAllExhausted, summarize(attempts, skipped), nil)
	o.emitFailure(runID, req, plat, fp.Hex(), start, attempts, xerr)
	return nil, xerr
}

// finish applies format selection, builds the Resolution, and emits the
// success log row.
func (o *Orchestrator) finish(
	runID string,
	req Request,
	plat platform.Platform,
	fp media.Fingerprint,
	d *media.Descriptor,
	cacheHit bool,
	attempts []strategy.Result,
	skipped []string,
	start time.Time,
) (*Resolution, *strategy.ExtractionError) {
	sel, err := selector.Select(d, selector.Request{Quality: req.Quality, AudioOnly: req.AudioOnly})
	if err != nil {
		xerr := strategy.Classify(err)
		o.emitFailure(runID, req, plat, fp.Hex(), start, attempts, xerr)
		return nil, xerr
	}

	res := &Resolution{
		RunID:          runID,
		SourceURL:      req.URL,
		Platform:       plat,
		Fingerprint:    fp.Hex(),
		Descriptor:     d,
		SelectedFormat: sel,
		CacheHit:       cacheHit,
		Attempts:       attempts,
		Skipped:        skipped,
		Elapsed:        o.now().Sub(start),
	}
	o.emitSuccess(res, req)
	return res, nil
}

// Runtime returns the hot-updatable config pointer shared with the rest
// of the process.
func (o *Orchestrator) Runtime() *atomic.Pointer[config.RuntimeConfig] {
	return o.runtime
}

func validateSourceURL(raw string) (host string, xerr *strategy.ExtractionError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", strategy.NewError(strategy.KindInvalidURL, "empty url", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", strategy.NewError(strategy.KindInvalidURL, "unparseable url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", strategy.NewError(strategy.KindInvalidURL,
			fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return "", strategy.NewError(strategy.KindInvalidURL, "url has no host", nil)
	}
	return u.Hostname(), nil
}

// summarize compacts per-strategy failures into one message.
func summarize(attempts []strategy.Result, skipped []string) string {
	if len(attempts) == 0 {
		if len(skipped) > 0 {
			return "no strategies attempted (skipped for missing auth: " + strings.Join(skipped, ", ") + ")"
		}
		return "no strategies attempted"
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %s", a.Strategy, a.Err.Kind))
		}
	}
	return "all strategies failed (" + strings.Join(parts, ", ") + ")"
}

func (o *Orchestrator) emitSuccess(res *Resolution, req Request) {
	if o.logs == nil {
		return
	}
	outcome := "success"
	o.logs.Emit(requestlog.LogRow{
		ID:          res.RunID,
		TsNs:        o.now().UnixNano(),
		ClientIP:    req.ClientIP,
		SourceURL:   req.URL,
		SourceHost:  hostOf(req.URL),
		Platform:    string(res.Platform),
		Fingerprint: res.Fingerprint,
		Method:      res.method(),
		Outcome:     outcome,
		CacheHit:    res.CacheHit,
		Attempts:    len(res.Attempts),
		DurationNs:  int64(res.Elapsed),
	})
}

func (o *Orchestrator) emitFailure(
	runID string,
	req Request,
	plat platform.Platform,
	fingerprint string,
	start time.Time,
	attempts []strategy.Result,
	xerr *strategy.ExtractionError,
) {
	if o.logs == nil {
		return
	}
	o.logs.Emit(requestlog.LogRow{
		ID:          runID,
		TsNs:        o.now().UnixNano(),
		ClientIP:    req.ClientIP,
		SourceURL:   req.URL,
		SourceHost:  hostOf(req.URL),
		Platform:    string(plat),
		Fingerprint: fingerprint,
		Outcome:     "failure",
		ErrorKind:   string(xerr.Kind),
		Attempts:    len(attempts),
		DurationNs:  int64(o.now().Sub(start)),
	})
}

func hostOf(raw string) string {
	if u, err := url.Parse(strings.TrimSpace(raw)); err == nil {
		return u.Host
	}
	return ""
}
