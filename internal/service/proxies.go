package service

import (
	"strings"

	"github.com/snapgrab/snapgrab/internal/proxypool"
)

// ListProxies returns a snapshot of every pooled proxy.
func (s *ControlPlane) ListProxies() ([]proxypool.Snapshot, error) {
	if s.Proxies == nil {
		return []proxypool.Snapshot{}, nil
	}
	return s.Proxies.Snapshots(), nil
}

// AddProxy appends one proxy to the pool.
func (s *ControlPlane) AddProxy(rawURL, label string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return invalidArg("url: is required")
	}
	if s.Proxies == nil {
		return internal("proxy pool not configured", nil)
	}
	if err := s.Proxies.Add(rawURL, label); err != nil {
		if strings.Contains(err.Error(), "already present") {
			return conflict("proxy already present")
		}
		return invalidArg(err.Error())
	}
	return nil
}

// RemoveProxy drops a proxy from the pool by URL.
func (s *ControlPlane) RemoveProxy(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return invalidArg("url: is required")
	}
	if s.Proxies == nil || !s.Proxies.Remove(rawURL) {
		return notFound("proxy not found")
	}
	return nil
}

// ReloadProxies replaces the pool from the given YAML file, preserving
// health state for proxies present in both generations.
func (s *ControlPlane) ReloadProxies(path string) (int, error) {
	if s.Proxies == nil {
		return 0, internal("proxy pool not configured", nil)
	}
	if strings.TrimSpace(path) == "" {
		return 0, invalidArg("no proxy pool file configured")
	}
	if err := s.Proxies.LoadFile(path); err != nil {
		return 0, invalidArg(err.Error())
	}
	return s.Proxies.Size(), nil
}
