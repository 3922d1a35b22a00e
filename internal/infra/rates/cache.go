package rates

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
)

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(c *redis.Client) Cache {
	return &redisCache{client: c}
}

func (r *redisCache) GetTable(ctx context.Context, base string) (Table, bool, error) {
	key := r.getKey(base)

	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	t := Table{}
	if err := json.Unmarshal(b, &t); err != nil {
		// 缓存脏了就删掉，避免持续命中错误
		_ = r.client.Del(ctx, key).Err()
		return nil, false, err
	}
	return t, true, nil
}

func (r *redisCache) SetTable(ctx context.Context, base string, t Table, ttl time.Duration) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	// 加入随机时间 防止同时过期
	return r.client.Set(ctx, r.getKey(base), b, withJitter(ttl, 30*time.Second)).Err()
}

func (r *redisCache) getKey(base string) string {
	return fmt.Sprintf("rates:table:%s", base)
}

func withJitter(ttl time.Duration, jitter time.Duration) time.Duration {
	if ttl <= 0 || jitter <= 0 {
		return ttl
	}
	// [0, jitter)
	return ttl + time.Duration(rand.Int63n(int64(jitter)))
}
