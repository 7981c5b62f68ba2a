// Package cache holds the Redis-backed seat-availability cache.  The
// occupied-seat set for a showtime is expensive enough to derive (two
// table scans) and read often enough (every seat-map render) to be
// worth a short-TTL cache.  Correctness never depends on it: entries
// are invalidated on every hold, release and confirm, the TTL bounds
// staleness from sweeps, and a nil client disables caching entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinealfa/boleteria/internal/model"
)

// Availability caches the occupied seat codes per showtime.
type Availability struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns an availability cache over the given client.  A nil
// client yields a cache whose operations are all no-ops.
func New(rdb *redis.Client, ttl time.Duration) *Availability {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Availability{rdb: rdb, ttl: ttl}
}

func (a *Availability) enabled() bool { return a != nil && a.rdb != nil }

func keyFor(key model.ShowtimeKey) string {
	return fmt.Sprintf("avail:%s|%s|%s|%s", key.MovieID, key.Fecha, key.Hora, key.Sala)
}

// Get returns the cached occupied seat codes and whether the entry was
// present.  Cache errors are treated as misses.
func (a *Availability) Get(ctx context.Context, key model.ShowtimeKey) ([]string, bool) {
	if !a.enabled() {
		return nil, false
	}
	raw, err := a.rdb.Get(ctx, keyFor(key)).Bytes()
	if err != nil {
		return nil, false
	}
	var seats []string
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

// Set stores the occupied seat codes for the showtime.  Best effort;
// failures are ignored.
func (a *Availability) Set(ctx context.Context, key model.ShowtimeKey, seats []string) {
	if !a.enabled() {
		return
	}
	raw, err := json.Marshal(seats)
	if err != nil {
		return
	}
	_ = a.rdb.Set(ctx, keyFor(key), raw, a.ttl).Err()
}

// Invalidate drops the cached entry for the showtime.  Called after
// every mutation of the showtime's seat state.
func (a *Availability) Invalidate(ctx context.Context, key model.ShowtimeKey) {
	if !a.enabled() {
		return
	}
	_ = a.rdb.Del(ctx, keyFor(key)).Err()
}
