package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"streak-bot/internal/logger"
)

// Source is anything that can answer activity and existence questions.
type Source interface {
	FetchStats(ctx context.Context, username string, year int) (*UserCalendar, error)
	Exists(ctx context.Context, username string) bool
}

// CacheRecorder receives cache hit/miss notifications.
type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

// CachedSource puts a Redis cache-aside layer in front of another Source.
// Concurrent misses for the same user and year share one upstream call.
// Cache failures are logged and bypassed, never returned.
type CachedSource struct {
	next   Source
	client *redis.Client
	prefix string
	ttl    time.Duration
	rec    CacheRecorder
	group  singleflight.Group
}

func NewCachedSource(next Source, client *redis.Client, prefix string, ttl time.Duration, rec CacheRecorder) *CachedSource {
	return &CachedSource{
		next:   next,
		client: client,
		prefix: prefix,
		ttl:    ttl,
		rec:    rec,
	}
}

func (c *CachedSource) statsKey(username string, year int) string {
	return fmt.Sprintf("%sstats:%s:%d", c.prefix, strings.ToLower(username), year)
}

func (c *CachedSource) FetchStats(ctx context.Context, username string, year int) (*UserCalendar, error) {
	key := c.statsKey(username, year)

	if cached, ok := c.get(ctx, key); ok {
		return cached, nil
	}

	// The shared fetch outlives any one caller; the upstream client's own
	// timeout still bounds it.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		flightCtx := context.WithoutCancel(ctx)
		cal, err := c.next.FetchStats(flightCtx, username, year)
		if err != nil {
			return nil, err
		}
		c.set(flightCtx, key, cal)
		return cal, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*UserCalendar), nil
	}
}

// Exists is not cached: it only runs when a username is added.
func (c *CachedSource) Exists(ctx context.Context, username string) bool {
	return c.next.Exists(ctx, username)
}

func (c *CachedSource) get(ctx context.Context, key string) (*UserCalendar, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warning("cache get %s: %v", key, err)
		}
		c.miss()
		return nil, false
	}

	var cal UserCalendar
	if err := json.Unmarshal(data, &cal); err != nil {
		logger.Warning("cache unmarshal %s: %v", key, err)
		c.miss()
		return nil, false
	}
	c.hit()
	return &cal, true
}

func (c *CachedSource) set(ctx context.Context, key string, cal *UserCalendar) {
	data, err := json.Marshal(cal)
	if err != nil {
		logger.Warning("cache marshal %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warning("cache set %s: %v", key, err)
	}
}

func (c *CachedSource) hit() {
	if c.rec != nil {
		c.rec.CacheHit()
	}
}

func (c *CachedSource) miss() {
	if c.rec != nil {
		c.rec.CacheMiss()
	}
}
