package service

import (
	"context"
	"errors"
	"slices"

	"github.com/snapgrab/snapgrab/internal/cookies"
)

// CookieStatuses reports the cookie state of every known platform.
func (s *ControlPlane) CookieStatuses() []cookies.Status {
	if s.Cookies == nil {
		return []cookies.Status{}
	}
	return s.Cookies.Statuses(s.Platforms)
}

// RegenerateCookie triggers a regeneration for one platform. force
// bypasses the throttle window.
func (s *ControlPlane) RegenerateCookie(ctx context.Context, platform string, force bool) (cookies.Status, error) {
	if s.Cookies == nil {
		return cookies.Status{}, internal("cookie store not configured", nil)
	}
	if !slices.Contains(s.Platforms, platform) {
		return cookies.Status{}, notFound("unknown platform: " + platform)
	}

	_, err := s.Cookies.EnsureValid(ctx, platform, force)
	switch {
	case err == nil:
	case errors.Is(err, cookies.ErrRegenThrottled):
		return cookies.Status{}, conflict("regeneration throttled, retry later or use force")
	case errors.Is(err, cookies.ErrNoRegenerator):
		return cookies.Status{}, invalidArg("no cookie regenerator configured")
	default:
		return cookies.Status{}, internal("cookie regeneration failed", err)
	}
	return s.Cookies.StatusFor(platform), nil
}
