package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/snapgrab/snapgrab/internal/netutil"
)

// ErrorKind classifies an extraction failure. The kind drives the
// orchestrator's state transition: fatal kinds abort the chain, auth
// triggers one cookie regeneration, everything else advances.
type ErrorKind string

const (
	KindInvalidURL          ErrorKind = "invalid_url"
	KindUnsupportedPlatform ErrorKind = "unsupported_platform"
	KindAuthRequired        ErrorKind = "authentication_required"
	KindTransientNetwork    ErrorKind = "transient_network_error"
	KindRateLimited         ErrorKind = "rate_limited"
	KindBlocked             ErrorKind = "blocked"
	KindNoEligibleFormat    ErrorKind = "no_eligible_format"
	KindAllExhausted        ErrorKind = "all_strategies_exhausted"
)

// Fatal reports whether the kind aborts the whole chain immediately.
func (k ErrorKind) Fatal() bool {
	return k == KindInvalidURL || k == KindUnsupportedPlatform
}

// ExtractionError is the classified failure of one strategy attempt
// or of a whole chain run.
type ExtractionError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewError builds a classified extraction error.
func NewError(kind ErrorKind, message string, cause error) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message, Err: cause}
}

// Classify maps an arbitrary attempt error onto the taxonomy.
// Already-classified errors pass through. HTTP 401/403 map to auth or
// block, 429 to rate limiting; everything unrecognized is treated as a
// transient network error so the chain advances rather than aborting.
func Classify(err error) *ExtractionError {
	if err == nil {
		return nil
	}

	var xerr *ExtractionError
	if errors.As(err, &xerr) {
		return xerr
	}

	var statusErr *netutil.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			return NewError(KindAuthRequired, "upstream requires authentication", err)
		case http.StatusForbidden:
			return NewError(KindBlocked, "upstream refused the request", err)
		case http.StatusTooManyRequests:
			return NewError(KindRateLimited, "upstream rate limit hit", err)
		}
		return NewError(KindTransientNetwork, fmt.Sprintf("upstream status %d", statusErr.StatusCode), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTransientNetwork, "attempt timed out", err)
	}

	return NewError(KindTransientNetwork, "attempt failed", err)
}

// Kind extracts the classified kind from any error, defaulting to
// transient network for unclassified errors.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return Classify(err).Kind
}
