// Package ratelimit paces outbound extraction requests. Every attempt
// honors two floors: a per-origin delay so a single platform never sees
// back-to-back hits, and a smaller global delay across all origins.
// Waiters reserve their slot atomically, so concurrent requests against
// the same origin serialize instead of stampeding.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

const (
	DefaultPerOriginDelay = 2 * time.Second
	DefaultGlobalDelay    = 1 * time.Second

	// pruneThreshold is the origin-entry count above which a Wait call
	// sweeps entries idle longer than pruneIdle.
	pruneThreshold = 100
	pruneIdle      = 5 * time.Minute
)

// Limiter tracks the next admissible send time per origin plus a global
// floor. Delays are hot-updatable.
type Limiter struct {
	// origins maps origin -> next admissible unix-nano send time.
	origins *xsync.Map[string, int64]
	global  atomic.Int64 // next admissible global send time, unix nanos

	perOriginDelay atomic.Int64 // nanos
	globalDelay    atomic.Int64 // nanos

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a limiter. Non-positive delays fall back to the defaults.
func New(perOrigin, global time.Duration) *Limiter {
	l := &Limiter{
		origins: xsync.NewMap[string, int64](),
		now:     time.Now,
		sleep:   sleepCtx,
	}
	l.SetDelays(perOrigin, global)
	return l
}

// SetDelays swaps the pacing floors. Callers may invoke it concurrently
// with Wait; in-flight waiters keep the delay they reserved under.
func (l *Limiter) SetDelays(perOrigin, global time.Duration) {
	if perOrigin <= 0 {
		perOrigin = DefaultPerOriginDelay
	}
	if global <= 0 {
		global = DefaultGlobalDelay
	}
	l.perOriginDelay.Store(int64(perOrigin))
	l.globalDelay.Store(int64(global))
}

// Wait blocks until both the per-origin and global floors admit a send,
// then records the reservation. Returns early with the context error if
// ctx is done first. An empty origin is paced by the global floor only.
func (l *Limiter) Wait(ctx context.Context, origin string) error {
	nowNanos := l.now().UnixNano()

	slot := l.reserveGlobal(nowNanos)
	if origin != "" {
		if originSlot := l.reserveOrigin(origin, nowNanos); originSlot > slot {
			slot = originSlot
		}
	}

	l.maybePrune(nowNanos)

	if wait := time.Duration(slot - nowNanos); wait > 0 {
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// reserveGlobal claims the next global slot with a CAS loop and returns
// the claimed send time.
func (l *Limiter) reserveGlobal(nowNanos int64) int64 {
	delay := l.globalDelay.Load()
	for {
		prev := l.global.Load()
		slot := nowNanos
		if next := prev + delay; next > slot {
			slot = next
		}
		if l.global.CompareAndSwap(prev, slot) {
			return slot
		}
	}
}

// reserveOrigin claims the next per-origin slot atomically via Compute.
func (l *Limiter) reserveOrigin(origin string, nowNanos int64) int64 {
	delay := l.perOriginDelay.Load()
	slot, _ := l.origins.Compute(origin, func(prev int64, loaded bool) (int64, xsync.ComputeOp) {
		next := nowNanos
		if loaded && prev+delay > next {
			next = prev + delay
		}
		return next, xsync.UpdateOp
	})
	return slot
}

// maybePrune drops origins whose last reservation is stale once the map
// grows past the threshold. Bounds memory when callers feed many
// distinct hosts.
func (l *Limiter) maybePrune(nowNanos int64) {
	if l.origins.Size() <= pruneThreshold {
		return
	}
	cutoff := nowNanos - int64(pruneIdle)
	l.origins.Range(func(origin string, last int64) bool {
		if last < cutoff {
			l.origins.Compute(origin, func(cur int64, loaded bool) (int64, xsync.ComputeOp) {
				if loaded && cur < cutoff {
					return cur, xsync.DeleteOp
				}
				return cur, xsync.CancelOp
			})
		}
		return true
	})
}

// TrackedOrigins reports the number of origins currently paced.
func (l *Limiter) TrackedOrigins() int {
	return l.origins.Size()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
