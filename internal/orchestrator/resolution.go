package orchestrator

import (
	"time"

	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/platform"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

// Request is one inbound resolution request.
type Request struct {
	// URL is the user-supplied page URL.
	URL string
	// Quality is the quality token ("720p", "best", ...). Empty means the
	// default target.
	Quality string
	// AudioOnly requests an audio rendition.
	AudioOnly bool
	// Mobile selects the mobile header profile for attempts.
	Mobile bool
	// CookieBlob overrides the stored cookie file for this request only.
	CookieBlob string
	// NoCache bypasses the result cache lookup (the result is still
	// stored).
	NoCache bool
	// ClientIP is carried into the resolution log.
	ClientIP string
}

// Resolution is the outcome of a successful chain run.
type Resolution struct {
	// RunID uniquely identifies this resolution for logs.
	RunID string `json:"run_id"`
	// SourceURL echoes the requested URL.
	SourceURL string `json:"source_url"`
	// Platform is the detected platform.
	Platform platform.Platform `json:"platform"`
	// Fingerprint is the cache key of the normalized URL.
	Fingerprint string `json:"fingerprint"`
	// Descriptor is the resolved media metadata.
	Descriptor *media.Descriptor `json:"descriptor"`
	// SelectedFormat is the variant chosen by format selection; nil when
	// the descriptor carries no format list.
	SelectedFormat *media.FormatVariant `json:"selected_format,omitempty"`
	// CacheHit reports whether the descriptor came from the result cache.
	CacheHit bool `json:"cache_hit"`
	// Attempts records the outcome of each strategy actually invoked
	// during this run. Empty on a cache hit.
	Attempts []strategy.Result `json:"-"`
	// Skipped names auth-requiring strategies that were set aside because
	// no valid cookie was on file. Skips are not attempts.
	Skipped []string `json:"-"`
	// Elapsed is the total wall time of the run.
	Elapsed time.Duration `json:"-"`
}

// method returns the strategy name that produced the descriptor.
func (r *Resolution) method() string {
	if r.Descriptor != nil {
		return r.Descriptor.Method
	}
	return ""
}
