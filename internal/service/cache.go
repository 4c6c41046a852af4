package service

import "github.com/snapgrab/snapgrab/internal/resultcache"

// CacheStats reports result cache counters.
func (s *ControlPlane) CacheStats() resultcache.Stats {
	if s.Cache == nil {
		return resultcache.Stats{}
	}
	return s.Cache.Stats()
}

// FlushCache drops every cached resolution. Returns the number of
// entries removed.
func (s *ControlPlane) FlushCache() int {
	if s.Cache == nil {
		return 0
	}
	n := s.Cache.Size()
	s.Cache.Clear()
	return n
}
