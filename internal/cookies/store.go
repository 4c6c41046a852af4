// Package cookies manages the lifecycle of per-platform cookie files:
// validity checks, throttled regeneration through a pluggable
// regenerator, and periodic revalidation sweeps. The store knows nothing
// about cookie contents; a cookie file is valid when it exists and is
// non-empty.
package cookies

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultRegenThrottle is the minimum spacing between regeneration
// attempts for one platform. Forced regenerations bypass it.
const DefaultRegenThrottle = 60 * time.Second

var (
	// ErrRegenThrottled means a regeneration was requested inside the
	// throttle window and was not forced.
	ErrRegenThrottled = errors.New("cookies: regeneration throttled")
	// ErrNoRegenerator means the store has no way to produce cookies.
	ErrNoRegenerator = errors.New("cookies: no regenerator configured")
)

// Regenerator produces a fresh cookie file for a platform at the given
// path. Implementations typically drive a logged-in browser session.
type Regenerator interface {
	Regenerate(ctx context.Context, platform, path string) error
}

// RegeneratorFunc adapts a function to the Regenerator interface.
type RegeneratorFunc func(ctx context.Context, platform, path string) error

func (f RegeneratorFunc) Regenerate(ctx context.Context, platform, path string) error {
	return f(ctx, platform, path)
}

// record tracks one platform's cookie state.
type record struct {
	mu            sync.Mutex // serializes regeneration per platform
	lastRegenNano int64      // guarded by mu
	lastError     string     // guarded by mu
}

// Store is the per-platform cookie registry.
type Store struct {
	dir   string
	regen Regenerator

	// throttle is nanoseconds, hot-updatable via SetThrottle.
	throttle atomic.Int64

	records *xsync.Map[string, *record]

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRegenerator installs the cookie producer.
func WithRegenerator(r Regenerator) Option {
	return func(s *Store) { s.regen = r }
}

// WithThrottle overrides the regeneration throttle window.
func WithThrottle(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.throttle.Store(int64(d))
		}
	}
}

// New builds a store rooted at dir. The directory is created on demand.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cookies: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cookies: create dir: %w", err)
	}
	s := &Store{
		dir:     dir,
		records: xsync.NewMap[string, *record](),
		now:     time.Now,
	}
	s.throttle.Store(int64(DefaultRegenThrottle))
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetThrottle updates the regeneration throttle window. Zero or negative
// values are ignored.
func (s *Store) SetThrottle(d time.Duration) {
	if d > 0 {
		s.throttle.Store(int64(d))
	}
}

// Path returns the cookie file path for a platform, whether or not the
// file exists.
func (s *Store) Path(platform string) string {
	return filepath.Join(s.dir, platform+"_cookies.txt")
}

// IsValid reports whether the platform's cookie file exists and is
// non-empty.
func (s *Store) IsValid(platform string) bool {
	info, err := os.Stat(s.Path(platform))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// EnsureValid returns the path to a valid cookie file, regenerating if
// needed. force skips both the validity short-circuit and the throttle.
// Concurrent calls for one platform coalesce: the second caller waits
// for the first regeneration instead of starting its own.
func (s *Store) EnsureValid(ctx context.Context, platform string, force bool) (string, error) {
	path := s.Path(platform)
	if !force && s.IsValid(platform) {
		return path, nil
	}
	if s.regen == nil {
		return "", ErrNoRegenerator
	}

	rec, _ := s.records.LoadOrCompute(platform, func() (*record, bool) {
		return &record{}, false
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()

	// A concurrent regeneration may have finished while we waited.
	if !force && s.IsValid(platform) {
		return path, nil
	}

	now := s.now()
	if !force && rec.lastRegenNano != 0 && now.UnixNano()-rec.lastRegenNano < s.throttle.Load() {
		return "", ErrRegenThrottled
	}

	rec.lastRegenNano = now.UnixNano()
	if err := s.regen.Regenerate(ctx, platform, path); err != nil {
		rec.lastError = err.Error()
		return "", fmt.Errorf("cookies: regenerate %s: %w", platform, err)
	}
	rec.lastError = ""

	if !s.IsValid(platform) {
		rec.lastError = "regenerator produced no cookie file"
		return "", fmt.Errorf("cookies: regenerate %s: produced no cookie file", platform)
	}
	return path, nil
}

// Status is one platform's cookie state for API responses.
type Status struct {
	Platform  string    `json:"platform"`
	Valid     bool      `json:"valid"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time,omitzero"`
	LastRegen time.Time `json:"last_regen,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// StatusFor reports a platform's cookie state.
func (s *Store) StatusFor(platform string) Status {
	st := Status{Platform: platform, Path: s.Path(platform)}
	if info, err := os.Stat(st.Path); err == nil && info.Mode().IsRegular() {
		st.SizeBytes = info.Size()
		st.ModTime = info.ModTime().UTC()
		st.Valid = info.Size() > 0
	}
	if rec, ok := s.records.Load(platform); ok {
		rec.mu.Lock()
		if rec.lastRegenNano != 0 {
			st.LastRegen = time.Unix(0, rec.lastRegenNano).UTC()
		}
		st.LastError = rec.lastError
		rec.mu.Unlock()
	}
	return st
}

// Statuses reports cookie state for the given platforms.
func (s *Store) Statuses(platforms []string) []Status {
	out := make([]Status, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, s.StatusFor(p))
	}
	return out
}

// Revalidate regenerates cookies for every listed platform whose file is
// currently invalid. Used by the periodic sweep; throttling still
// applies, so a failing regenerator does not spin.
func (s *Store) Revalidate(ctx context.Context, platforms []string) map[string]error {
	failures := make(map[string]error)
	for _, p := range platforms {
		if s.IsValid(p) {
			continue
		}
		if _, err := s.EnsureValid(ctx, p, false); err != nil {
			failures[p] = err
		}
	}
	return failures
}
