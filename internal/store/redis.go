package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vehiclepush/internal/constants"
)

// insertScript marks the key and appends the record to the history list in
// one atomic step. ARGV: payload, ttl seconds (0 = none), history size (0 = unbounded).
var insertScript = redis.NewScript(`
local ttl = tonumber(ARGV[2])
local ok
if ttl > 0 then
  ok = redis.call("SET", KEYS[1], "1", "NX", "EX", ttl)
else
  ok = redis.call("SET", KEYS[1], "1", "NX")
end
if not ok then
  return 0
end
redis.call("LPUSH", KEYS[2], ARGV[1])
local size = tonumber(ARGV[3])
if size > 0 then
  redis.call("LTRIM", KEYS[2], 0, size - 1)
end
return 1
`)

// RedisStore keeps dedup keys as plain keys (with TTL when a window is set)
// and the newest records in a capped list.
type RedisStore struct {
	client      *redis.Client
	hasher      *Hasher
	window      time.Duration
	historySize int
	historyKey  string
}

func NewRedisStore(client *redis.Client, hasher *Hasher, window time.Duration, historySize int) *RedisStore {
	return &RedisStore{
		client:      client,
		hasher:      hasher,
		window:      window,
		historySize: historySize,
		historyKey:  constants.CacheKeyNotifications,
	}
}

func (r *RedisStore) InsertIfNew(ctx context.Context, n Notification) (bool, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return false, fmt.Errorf("failed to encode notification: %w", err)
	}

	ttl := int64(0)
	if r.window > 0 {
		ttl = int64(r.window.Seconds())
		if ttl < 1 {
			ttl = 1
		}
	}

	key := constants.CacheKeyPrefixDedup + r.hasher.Key(n)
	res, err := insertScript.Run(ctx, r.client, []string{key, r.historyKey}, payload, ttl, r.historySize).Int()
	if err != nil {
		return false, fmt.Errorf("redis insert script failed: %w", err)
	}
	return res == 1, nil
}

func (r *RedisStore) List(ctx context.Context, limit int) ([]Notification, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	items, err := r.client.LRange(ctx, r.historyKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE failed: %w", err)
	}

	out := make([]Notification, 0, len(items))
	for _, item := range items {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.historyKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN failed: %w", err)
	}
	return int(n), nil
}

// Close is a no-op; the client is owned by the bootstrap layer.
func (r *RedisStore) Close() error {
	return nil
}
