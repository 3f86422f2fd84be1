package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/yardhoppers/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// AcquireListingLock takes the per-listing booking lock for ttl.
// ok is false when another writer holds it.
func (c *RedisCache) AcquireListingLock(ctx context.Context, listingID int64, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, listingLockKey(listingID), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (c *RedisCache) ReleaseListingLock(ctx context.Context, listingID int64, token string) error {
	return releaseScript.Run(ctx, c.client, []string{listingLockKey(listingID)}, token).Err()
}

func listingLockKey(listingID int64) string {
	return fmt.Sprintf("lock:listing:%d:bookings", listingID)
}
