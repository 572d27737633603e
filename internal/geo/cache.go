package geo

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// CachedResolver is a read-through Redis cache in front of a Resolver.
// Destination text is normalized so "Airport" and " airport " share an
// entry. Cache traffic is best-effort: any Redis failure falls back to the
// wrapped resolver, and negative results are never cached.
type CachedResolver struct {
	Next   Resolver
	Client *redis.Client
	TTL    time.Duration
}

func NewCachedResolver(next Resolver, client *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedResolver{Next: next, Client: client, TTL: ttl}
}

func (c *CachedResolver) Resolve(ctx context.Context, destination string) (models.Coordinate, error) {
	key := cacheKey(destination)
	if b, err := c.Client.Get(ctx, key).Bytes(); err == nil {
		var coord models.Coordinate
		if err := json.Unmarshal(b, &coord); err == nil {
			return coord, nil
		}
	}

	coord, err := c.Next.Resolve(ctx, destination)
	if err != nil {
		return models.Coordinate{}, err
	}
	if b, err := json.Marshal(coord); err == nil {
		_ = c.Client.Set(ctx, key, b, c.TTL).Err()
	}
	return coord, nil
}

func cacheKey(destination string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(destination), " "))
}
