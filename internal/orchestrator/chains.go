package orchestrator

import (
	"time"

	"github.com/snapgrab/snapgrab/internal/platform"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

// Chains maps each platform to its ordered strategy chain. Registration
// happens at startup; lookups are read-only afterwards.
type Chains struct {
	byPlatform map[platform.Platform][]strategy.Extractor
}

// NewChains builds an empty registry.
func NewChains() *Chains {
	return &Chains{byPlatform: make(map[platform.Platform][]strategy.Extractor)}
}

// Register appends extractors to a platform's chain in attempt order.
func (c *Chains) Register(p platform.Platform, extractors ...strategy.Extractor) {
	c.byPlatform[p] = append(c.byPlatform[p], extractors...)
}

// For returns the chain for a platform. Platforms without an explicit
// chain fall back to the generic chain.
func (c *Chains) For(p platform.Platform) []strategy.Extractor {
	if chain, ok := c.byPlatform[p]; ok {
		return chain
	}
	return c.byPlatform[platform.Generic]
}

// Names lists the strategy names registered for a platform, in order.
func (c *Chains) Names(p platform.Platform) []string {
	chain := c.For(p)
	names := make([]string, 0, len(chain))
	for _, ex := range chain {
		names = append(names, ex.Name())
	}
	return names
}

// Platforms lists the platforms with an explicit chain.
func (c *Chains) Platforms() []platform.Platform {
	out := make([]platform.Platform, 0, len(c.byPlatform))
	for p := range c.byPlatform {
		out = append(out, p)
	}
	return out
}

// DefaultChains builds the production chain set: a mirror API first for
// platforms that have a reliable one, then an HTML scrape fallback.
// fetchTimeout bounds each strategy's own HTTP client.
func DefaultChains(fetchTimeout time.Duration) *Chains {
	c := NewChains()

	c.Register(platform.TikTok,
		strategy.NewMirrorAPI("tikwm_api", string(platform.TikTok), "https://www.tikwm.com/api/?url=%s", fetchTimeout),
		strategy.NewScrape("tiktok_scrape", string(platform.TikTok), "https://www.tiktok.com", fetchTimeout),
	)
	c.Register(platform.YouTube,
		strategy.NewScrape("youtube_scrape", string(platform.YouTube), "https://www.youtube.com", fetchTimeout),
	)
	c.Register(platform.Facebook,
		strategy.NewScrape("facebook_scrape", string(platform.Facebook), "https://www.facebook.com", fetchTimeout),
	)
	c.Register(platform.Twitter,
		strategy.NewScrape("twitter_scrape", string(platform.Twitter), "https://x.com", fetchTimeout),
	)
	c.Register(platform.Instagram,
		strategy.NewScrape("instagram_scrape", string(platform.Instagram), "https://www.instagram.com", fetchTimeout),
	)
	c.Register(platform.Threads,
		strategy.NewScrape("threads_scrape", string(platform.Threads), "https://www.threads.net", fetchTimeout),
	)
	c.Register(platform.Generic,
		strategy.NewScrape("generic_scrape", string(platform.Generic), "", fetchTimeout),
	)

	return c
}
