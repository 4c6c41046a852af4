// Package strategy defines the extraction capability interface, the
// request-scoped context passed to every attempt, and the failure
// taxonomy shared with the orchestrator. Concrete strategies are
// interchangeable collaborators: the orchestrator never knows whether an
// attempt went through an API mirror, an HTML scrape, or a browser.
package strategy

import (
	"context"
	"net/url"
	"time"

	"github.com/snapgrab/snapgrab/internal/media"
)

// Context carries the per-request inputs a strategy attempt may need.
// It is created for one inbound request and discarded with the response.
type Context struct {
	// SourceURL is the user-supplied page URL.
	SourceURL string
	// Mobile selects the mobile header profile.
	Mobile bool
	// CookieBlob, when non-empty, overrides the stored cookie file for
	// this request only. Opaque to the core.
	CookieBlob string
	// CookiePath points at the platform's stored cookie file; empty when
	// the store has no valid cookie.
	CookiePath string
	// Quality is the requested quality token ("720p", "1080p", ...).
	Quality string
	// AudioOnly requests an audio-only rendition.
	AudioOnly bool
	// ProxyURL routes the attempt through an egress proxy when non-nil.
	ProxyURL *url.URL
}

// Extractor is the capability interface every extraction method satisfies.
type Extractor interface {
	// Name identifies the strategy in logs and in Descriptor.Method.
	Name() string
	// RequiresAuth reports whether the attempt is doomed without a valid
	// platform cookie. The orchestrator skips such strategies while the
	// cookie store reports invalid.
	RequiresAuth() bool
	// Attempt resolves the source URL into a descriptor, or fails with an
	// error classifiable via Classify. Attempt must honor ctx cancellation
	// at its suspension points.
	Attempt(ctx context.Context, sc *Context) (*media.Descriptor, error)
}

// Result records the outcome of one attempt within a chain run.
// Transient: produced and consumed inside a single orchestration.
type Result struct {
	Strategy string
	Err      *ExtractionError // nil on success
	Elapsed  time.Duration
}
