package service

import (
	"sync"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

// siteCache is a TTL read-through cache over site lookups. Script IDs are
// resolved on every intake request, and sites change rarely; a stale entry
// is bounded by the TTL. Only positive lookups are cached so a newly
// provisioned site becomes visible immediately.
type siteCache struct {
	ttl     time.Duration
	entries map[string]siteCacheEntry
	mu      sync.RWMutex
}

type siteCacheEntry struct {
	site      models.Site
	expiresAt time.Time
}

func newSiteCache(ttl time.Duration) *siteCache {
	return &siteCache{
		ttl:     ttl,
		entries: make(map[string]siteCacheEntry),
	}
}

func (c *siteCache) get(scriptID string, now time.Time) (*models.Site, bool) {
	c.mu.RLock()
	entry, ok := c.entries[scriptID]
	c.mu.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	site := entry.site
	return &site, true
}

func (c *siteCache) put(site *models.Site, now time.Time) {
	c.mu.Lock()
	c.entries[site.ScriptID] = siteCacheEntry{
		site:      *site,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *siteCache) invalidate(scriptID string) {
	c.mu.Lock()
	delete(c.entries, scriptID)
	c.mu.Unlock()
}
