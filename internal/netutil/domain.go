// Package netutil provides outbound HTTP plumbing shared by extraction
// strategies: hardened clients, proxy-aware transports, and domain helpers.
package netutil

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ExtractDomain extracts the effective top-level-domain-plus-one (eTLD+1)
// from a target string that may be a URL, host:port, or a bare host.
// It is the canonical origin key for rate limiting and allow-list checks.
//
// Examples:
//
//	"https://www.youtube.com/watch?v=x" -> "youtube.com"
//	"vm.tiktok.com:443"                 -> "tiktok.com"
//	"192.168.1.1:8080"                  -> "192.168.1.1"
//	"localhost"                         -> "localhost"
func ExtractDomain(target string) string {
	if strings.Contains(target, "://") || strings.HasPrefix(target, "//") {
		if u, err := url.Parse(target); err == nil && u.Host != "" {
			target = u.Host
		}
	}

	host := target

	// net.SplitHostPort handles both "host:port" and "[ipv6]:port".
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	host = strings.ToLower(host)

	// Public Suffix List lookup fails for IPs, localhost, and bare TLDs;
	// those fall back to the host itself.
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}

// HostMatchesAny reports whether the URL's host equals one of the given
// domains or is a subdomain of one. Used for media-URL allow-list checks.
func HostMatchesAny(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
