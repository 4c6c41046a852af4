package proxypool

import (
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Entry represents one egress proxy in the rotation pool.
// Static fields are set at creation; dynamic fields use atomics or mutex.
type Entry struct {
	// --- Static (immutable after creation) ---
	URL     *url.URL
	Label   string
	AddedAt time.Time

	// Atomic dynamic fields for concurrent hot-path reads.
	FailureCount  atomic.Int32
	CooldownUntil atomic.Int64 // unix-nano; 0 = healthy
	SuccessCount  atomic.Int64
	LastUsed      atomic.Int64 // unix-nano of last Pick

	mu        sync.RWMutex
	lastError string
}

// NewEntry creates an Entry with the given static fields.
func NewEntry(u *url.URL, label string, addedAt time.Time) *Entry {
	return &Entry{URL: u, Label: label, AddedAt: addedAt}
}

// InCooldown reports whether the entry is benched at the given instant.
func (e *Entry) InCooldown(now time.Time) bool {
	until := e.CooldownUntil.Load()
	return until != 0 && now.UnixNano() < until
}

// SetLastError sets the entry's error string (thread-safe).
func (e *Entry) SetLastError(msg string) {
	e.mu.Lock()
	e.lastError = msg
	e.mu.Unlock()
}

// GetLastError returns the entry's error string (thread-safe).
func (e *Entry) GetLastError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

// Snapshot is an immutable view of an entry for API responses.
type Snapshot struct {
	URL          string    `json:"url"`
	Label        string    `json:"label,omitempty"`
	AddedAt      time.Time `json:"added_at"`
	FailureCount int32     `json:"failure_count"`
	SuccessCount int64     `json:"success_count"`
	InCooldown   bool      `json:"in_cooldown"`
	CooldownEnds time.Time `json:"cooldown_ends,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// Snapshot captures the entry's current state. The URL is redacted: user
// info never leaves the process.
func (e *Entry) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		URL:          redact(e.URL),
		Label:        e.Label,
		AddedAt:      e.AddedAt,
		FailureCount: e.FailureCount.Load(),
		SuccessCount: e.SuccessCount.Load(),
		LastError:    e.GetLastError(),
	}
	if until := e.CooldownUntil.Load(); until != 0 && now.UnixNano() < until {
		s.InCooldown = true
		s.CooldownEnds = time.Unix(0, until).UTC()
	}
	return s
}

// redact strips credentials from a proxy URL for display.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.User == nil {
		return u.String()
	}
	cp := *u
	cp.User = url.User("***")
	return cp.String()
}
