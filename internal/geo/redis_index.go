package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// RedisDriverIndex implements DriverIndex on Redis GEO commands so the
// index survives restarts and is shared with the location consumer.
type RedisDriverIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisDriverIndex(client *redis.Client, key string) *RedisDriverIndex {
	return &RedisDriverIndex{client: client, key: key, ctx: context.Background()}
}

func (r *RedisDriverIndex) Upsert(loc models.DriverLocation) {
	// offline drivers leave the geo set entirely so nearby queries and
	// their result counts never see them
	if !loc.Online {
		_, _ = r.client.ZRem(r.ctx, r.key, loc.DriverID).Result()
		_ = r.client.HSet(r.ctx, metaKey(loc.DriverID), map[string]interface{}{
			"online":  "false",
			"updated": time.Now().Format(time.RFC3339),
		}).Err()
		return
	}
	// position via GEOADD, metadata via HSET
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{
		Longitude: loc.Loc.Lng,
		Latitude:  loc.Loc.Lat,
		Name:      loc.DriverID,
	}).Result()
	_ = r.client.HSet(r.ctx, metaKey(loc.DriverID), map[string]interface{}{
		"online":  strconv.FormatBool(loc.Online),
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisDriverIndex) Nearby(lat, lng float64, limit int) []models.DriverLocation {
	res, err := r.client.GeoRadius(r.ctx, r.key, lng, lat, &redis.GeoRadiusQuery{
		Radius:    5000,
		Unit:      "m",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.DriverLocation, 0, len(res))
	for _, g := range res {
		d := models.DriverLocation{DriverID: g.Name}
		d.Loc.Lat = g.Latitude
		d.Loc.Lng = g.Longitude
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			if v, ok := m["online"]; ok {
				d.Online = v == "true"
			}
			if v, ok := m["updated"]; ok {
				if ts, err := time.Parse(time.RFC3339, v); err == nil {
					d.Updated = ts
				}
			}
		}
		out = append(out, d)
	}
	return out
}

func metaKey(id string) string { return fmt.Sprintf("driver:meta:%s", id) }
