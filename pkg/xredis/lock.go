package xredis

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/pkg/logger"
)

// 是自己的锁才续期 / 释放，GET + EXPIRE 两步之间可能被别人抢走，所以用 lua
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

type RedisLockMaster struct {
	rdb *redis.Client
	id  string // 当前节点的唯一ID（hostname + uuid）
}

func NewRedisLockMaster(rdb *redis.Client) *RedisLockMaster {
	host, _ := os.Hostname()
	return &RedisLockMaster{
		rdb: rdb,
		id:  fmt.Sprintf("%s-%s", host, uuid.NewString()),
	}
}

func (r *RedisLockMaster) ID() string { return r.id }

// TryAcquireMaster 抢主；已经是主节点则续期
func (r *RedisLockMaster) TryAcquireMaster(ctx context.Context, key string, ttl time.Duration) bool {
	// SETNX 带过期时间，Master 挂了锁会自动释放
	ok, err := r.rdb.SetNX(ctx, key, r.id, ttl).Result()
	if err != nil {
		logger.Warn(ctx, "redis master lock error", zap.String("key", key), zap.String("node", r.id), zap.Error(err))
		return false
	}
	if ok {
		return true
	}

	renewed, err := renewScript.Run(ctx, r.rdb, []string{key}, r.id, ttl.Milliseconds()).Int64()
	if err != nil {
		logger.Warn(ctx, "redis master renew error", zap.String("key", key), zap.Error(err))
		return false
	}
	return renewed == 1
}

// Release 主动让出
func (r *RedisLockMaster) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, r.rdb, []string{key}, r.id).Err()
}
