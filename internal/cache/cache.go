// Package cache implements the TTL-aware accelerator that sits in front of
// the durable URL store. Entries are JSON snapshots of URL records keyed by
// short path. The cache is never authoritative: a miss means "unknown", not
// "deleted", and a failed write is tolerated by callers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

const keyPrefix = "short:"

// Client is the minimal Redis surface the cache needs. Narrowing it to three
// operations keeps tests independent of a running Redis.
type Client interface {
	// Get returns the value stored under key. A missing key is reported via
	// the second return value, not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. A zero ttl means the entry has no
	// expiration and persists until explicitly deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the entry under key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}

type redisClient struct {
	client *redis.Client
}

// NewClient connects to Redis and returns a Client backed by it.
func NewClient(addr, password string, db int) (Client, error) {
	const op = "cache.NewClient"

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return &redisClient{client: client}, nil
}

func (c *redisClient) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "cache.redisClient.Get"

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	return val, true, nil
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "cache.redisClient.Set"

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

func (c *redisClient) Del(ctx context.Context, key string) error {
	const op = "cache.redisClient.Del"

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", op, err)
	}

	return nil
}

// URLCache stores serialized URL records in front of the durable store.
type URLCache struct {
	client Client
}

func NewURLCache(client Client) *URLCache {
	return &URLCache{
		client: client,
	}
}

func cacheKey(shortPath string) string {
	return keyPrefix + shortPath
}

// Put stores a snapshot of the record. The entry TTL is derived from the
// record's expiration so that the cache entry never outlives the durable
// record, with a 1-second floor so a record about to expire still gets a
// usable entry. Records without an expiration are stored without a TTL.
func (c *URLCache) Put(ctx context.Context, url *models.URL, now int64) error {
	const op = "cache.URLCache.Put"

	data, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal url record: %w", op, err)
	}

	var ttl time.Duration
	if url.ExpiresAt != nil {
		secs := (*url.ExpiresAt - now) / 1000
		if secs < 1 {
			secs = 1
		}
		ttl = time.Duration(secs) * time.Second
	}

	if err := c.client.Set(ctx, cacheKey(url.ShortPath), string(data), ttl); err != nil {
		return fmt.Errorf("%s: failed to cache url record: %w", op, err)
	}

	return nil
}

// Get returns the last-written snapshot for the short path. A missing or
// evicted entry is reported via the second return value.
func (c *URLCache) Get(ctx context.Context, shortPath string) (*models.URL, bool, error) {
	const op = "cache.URLCache.Get"

	data, ok, err := c.client.Get(ctx, cacheKey(shortPath))
	if err != nil {
		return nil, false, fmt.Errorf("%s: failed to get cached url record: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}

	url := new(models.URL)
	if err := json.Unmarshal([]byte(data), url); err != nil {
		return nil, false, fmt.Errorf("%s: failed to unmarshal url record: %w", op, err)
	}

	return url, true, nil
}

// Delete evicts the snapshot for the short path, if any.
func (c *URLCache) Delete(ctx context.Context, shortPath string) error {
	const op = "cache.URLCache.Delete"

	if err := c.client.Del(ctx, cacheKey(shortPath)); err != nil {
		return fmt.Errorf("%s: failed to delete cached url record: %w", op, err)
	}

	return nil
}
