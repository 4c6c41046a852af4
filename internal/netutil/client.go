package netutil

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// ClientOptions controls construction of outbound HTTP clients.
type ClientOptions struct {
	// Timeout caps the whole request lifecycle. Zero means the caller
	// controls cancellation solely through the request context.
	Timeout time.Duration
	// ProxyURL routes the client through an egress proxy when non-nil.
	// Supported schemes: http, https, socks5.
	ProxyURL *url.URL
	// MaxIdleConns / MaxIdleConnsPerHost tune connection reuse.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NewClient builds an HTTP client with secure transport defaults.
// With a socks5 ProxyURL the dialer goes through x/net/proxy; http(s)
// proxies use the transport's native proxy support.
func NewClient(opts ClientOptions) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        defaultInt(opts.MaxIdleConns, 64),
		MaxIdleConnsPerHost: defaultInt(opts.MaxIdleConnsPerHost, 8),
		IdleConnTimeout:     defaultDuration(opts.IdleConnTimeout, 90*time.Second),
	}

	if opts.ProxyURL != nil {
		switch opts.ProxyURL.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(opts.ProxyURL)
		case "socks5", "socks5h":
			dialer, err := xproxy.FromURL(opts.ProxyURL, &net.Dialer{Timeout: 30 * time.Second})
			if err != nil {
				return nil, fmt.Errorf("netutil: socks5 dialer for %s: %w", opts.ProxyURL.Host, err)
			}
			if ctxDialer, ok := dialer.(xproxy.ContextDialer); ok {
				transport.DialContext = ctxDialer.DialContext
			} else {
				transport.Dial = dialer.Dial
			}
		default:
			return nil, fmt.Errorf("netutil: unsupported proxy scheme %q", opts.ProxyURL.Scheme)
		}
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}, nil
}

func defaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func defaultDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
