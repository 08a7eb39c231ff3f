package stations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/dblive/pkg/ctdf"
)

const redisKeyPrefix = "dblive:stations:"

// RedisStore is a DurableStore backed by Redis. Zero expiration keeps entries forever.
type RedisStore struct {
	Cache *cache.Cache[string]
}

func NewRedisStore(client *redis.Client, expiration time.Duration) *RedisStore {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &RedisStore{
		Cache: cache.New[string](redisStore),
	}
}

func (s *RedisStore) Load(ctx context.Context, pattern string) ([]ctdf.Station, bool, error) {
	value, err := s.Cache.Get(ctx, redisKeyPrefix+pattern)
	if errors.Is(err, store.NotFound{}) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var stations []ctdf.Station
	if err := json.Unmarshal([]byte(value), &stations); err != nil {
		return nil, false, err
	}

	return stations, true, nil
}

func (s *RedisStore) Save(ctx context.Context, pattern string, stations []ctdf.Station) error {
	stationsJSON, err := json.Marshal(stations)
	if err != nil {
		return err
	}

	return s.Cache.Set(ctx, redisKeyPrefix+pattern, string(stationsJSON))
}
