package strategy

import "math/rand/v2"

// userAgents is the rotation pool for outbound extraction requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile Safari/604.1",
	"Mozilla/5.0 (Linux; Android 12; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
}

// RandomUserAgent picks a user agent from the rotation pool.
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// BaseHeaders returns the desktop or mobile browser header profile with a
// rotated user agent. Strategies layer platform-specific Referer/Origin
// headers on top.
func BaseHeaders(mobile bool) map[string]string {
	if mobile {
		return map[string]string{
			"User-Agent":      userAgents[2],
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Connection":      "keep-alive",
		}
	}
	return map[string]string{
		"User-Agent":      RandomUserAgent(),
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Connection":      "keep-alive",
	}
}

// PlatformHeaders layers Referer/Origin for a platform origin onto the
// base profile.
func PlatformHeaders(mobile bool, origin string) map[string]string {
	h := BaseHeaders(mobile)
	if origin != "" {
		h["Referer"] = origin + "/"
		h["Origin"] = origin
	}
	return h
}
