// Package platform maps source URLs to platform identifiers and holds the
// per-platform media-URL allow-lists. The registry is a static lookup table
// resolved once at startup; no runtime mutation.
package platform

import (
	"strings"

	"github.com/snapgrab/snapgrab/internal/netutil"
)

// Platform identifies a supported source site.
type Platform string

const (
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	Instagram Platform = "instagram"
	Threads   Platform = "threads"
	// Generic covers URLs with no platform-specific chain; strategies for
	// it accept any direct http(s) media URL.
	Generic Platform = "generic"
)

// IsValid reports whether p names a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case YouTube, TikTok, Facebook, Twitter, Instagram, Threads, Generic:
		return true
	}
	return false
}

// domainPatterns maps each platform to the hostnames (eTLD+1 or full host)
// that identify it in a source URL.
var domainPatterns = map[Platform][]string{
	TikTok:    {"tiktok.com", "vm.tiktok.com"},
	Facebook:  {"facebook.com", "fb.com", "fb.watch"},
	YouTube:   {"youtube.com", "youtu.be", "m.youtube.com"},
	Twitter:   {"twitter.com", "mobile.twitter.com", "x.com"},
	Instagram: {"instagram.com", "instagr.am"},
	Threads:   {"threads.net", "threads.com"},
}

// mediaAllowList maps each platform to the CDN domains its extracted media
// URLs are allowed to point at. A descriptor whose media URL falls outside
// this list is discarded as invalid. Generic has no list: any http(s) URL
// passes.
var mediaAllowList = map[Platform][]string{
	TikTok:    {"tiktokcdn.com", "tiktokv.com", "muscdn.com", "byteoversea.com"},
	Facebook:  {"fbcdn.net", "facebook.com"},
	YouTube:   {"googlevideo.com", "youtube.com"},
	Twitter:   {"twimg.com", "twitter.com", "x.com"},
	Instagram: {"cdninstagram.com", "instagram.com", "fbcdn.net"},
	Threads:   {"cdninstagram.com", "threads.net", "threads.com", "fbcdn.net"},
}

// Detect resolves a source URL to its platform. Unknown hosts resolve to
// Generic rather than failing: the generic chain decides whether the URL
// is actually usable.
func Detect(rawURL string) Platform {
	domain := netutil.ExtractDomain(rawURL)
	if domain == "" {
		return Generic
	}
	for plat, patterns := range domainPatterns {
		for _, p := range patterns {
			if domain == p || strings.HasSuffix(p, "."+domain) || strings.HasSuffix(domain, "."+p) {
				return plat
			}
		}
	}
	return Generic
}

// MediaURLAllowed reports whether an extracted media URL is acceptable for
// the given platform. Used by descriptor validation; signature matches
// media.AllowListFunc.
func MediaURLAllowed(plat, mediaURL string) bool {
	domains, ok := mediaAllowList[Platform(plat)]
	if !ok || len(domains) == 0 {
		// Generic or unknown platform: any http(s) URL with a host passes.
		return strings.HasPrefix(mediaURL, "http://") || strings.HasPrefix(mediaURL, "https://")
	}
	return netutil.HostMatchesAny(mediaURL, domains)
}

// All returns the platforms with registered domain patterns, plus Generic.
func All() []Platform {
	return []Platform{YouTube, TikTok, Facebook, Twitter, Instagram, Threads, Generic}
}
