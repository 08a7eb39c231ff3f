package stations

import (
	"context"
	"strings"

	"github.com/bluele/gcache"
	"github.com/rs/zerolog/log"
	"github.com/travigo/dblive/pkg/ctdf"
)

const defaultVolatileSize = 1024

// DurableStore keeps candidate lists across restarts
type DurableStore interface {
	Load(ctx context.Context, pattern string) ([]ctdf.Station, bool, error)
	Save(ctx context.Context, pattern string, stations []ctdf.Station) error
}

// Cache is the two tier station cache. The volatile tier lives for the process, the
// durable tier is only consulted when the volatile one misses.
type Cache struct {
	volatile gcache.Cache
	durable  DurableStore
}

func NewVolatileCache(size int) gcache.Cache {
	if size <= 0 {
		size = defaultVolatileSize
	}

	return gcache.New(size).LRU().Build()
}

// NewCache builds a Cache. A nil volatile tier gets a default LRU, a nil durable tier
// disables persistence.
func NewCache(volatile gcache.Cache, durable DurableStore) *Cache {
	if volatile == nil {
		volatile = NewVolatileCache(defaultVolatileSize)
	}

	return &Cache{
		volatile: volatile,
		durable:  durable,
	}
}

func NormalizePattern(pattern string) string {
	return strings.ToLower(strings.TrimSpace(pattern))
}

func (c *Cache) Get(ctx context.Context, pattern string) ([]ctdf.Station, bool) {
	key := NormalizePattern(pattern)

	if value, err := c.volatile.Get(key); err == nil {
		if stations, ok := value.([]ctdf.Station); ok {
			return stations, true
		}
	}

	if c.durable == nil {
		return nil, false
	}

	stations, found, err := c.durable.Load(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("pattern", key).Msg("Durable station cache lookup failed")
		return nil, false
	}
	if !found || len(stations) == 0 {
		return nil, false
	}

	c.volatile.Set(key, stations)

	return stations, true
}

// Put writes a candidate list to both tiers. Empty lists are never cached.
func (c *Cache) Put(ctx context.Context, pattern string, stations []ctdf.Station) error {
	if len(stations) == 0 {
		return nil
	}

	key := NormalizePattern(pattern)
	if err := c.volatile.Set(key, stations); err != nil {
		return err
	}

	if c.durable == nil {
		return nil
	}

	return c.durable.Save(ctx, key, stations)
}
