package platform

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// NewCache returns an in-process TTL cache. Expired items are purged every
// two TTLs.
func NewCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return cache.New(ttl, 2*ttl)
}
