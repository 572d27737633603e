package geo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

type countingResolver struct {
	coord models.Coordinate
	err   error
	calls int
}

func (c *countingResolver) Resolve(ctx context.Context, destination string) (models.Coordinate, error) {
	c.calls++
	if c.err != nil {
		return models.Coordinate{}, c.err
	}
	return c.coord, nil
}

func cacheFixture(t *testing.T, next Resolver) *CachedResolver {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedResolver(next, client, time.Minute)
}

func TestCachedResolver_SecondLookupHitsCache(t *testing.T) {
	next := &countingResolver{coord: models.Coordinate{Lat: 5.6037, Lng: -0.187}}
	c := cacheFixture(t, next)
	ctx := context.Background()

	first, err := c.Resolve(ctx, "Accra Mall")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := c.Resolve(ctx, "Accra Mall")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", next.calls)
	}
	if first != second {
		t.Fatalf("cache returned different coordinate: %+v vs %+v", first, second)
	}
}

func TestCachedResolver_NormalizesDestination(t *testing.T) {
	next := &countingResolver{coord: models.Coordinate{Lat: 5.6037, Lng: -0.187}}
	c := cacheFixture(t, next)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, "Accra  Mall"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := c.Resolve(ctx, "  accra mall "); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected normalized key to share the entry, got %d upstream calls", next.calls)
	}
}

func TestCachedResolver_FailuresNotCached(t *testing.T) {
	next := &countingResolver{err: fmt.Errorf("%w: no match", models.ErrNotFound)}
	c := cacheFixture(t, next)
	ctx := context.Background()

	if _, err := c.Resolve(ctx, "nowhere"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Resolve(ctx, "nowhere"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expected negative result to bypass cache, got %d calls", next.calls)
	}
}
