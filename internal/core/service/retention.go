package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/safe"
)

const retentionLockKey = "token-browser:lock:retention"

// Locker 多实例部署时只让一个节点做清理
type Locker interface {
	TryAcquireMaster(ctx context.Context, key string, ttl time.Duration) bool
}

type RetentionJob struct {
	audit    *AuditService
	locker   Locker // nil 表示单机
	days     int
	interval time.Duration
}

func NewRetentionJob(audit *AuditService, locker Locker, days int, interval time.Duration) *RetentionJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionJob{audit: audit, locker: locker, days: days, interval: interval}
}

// Start days<=0 时不启动
func (j *RetentionJob) Start(ctx context.Context) {
	if j.days <= 0 {
		logger.Info(ctx, "activity retention disabled")
		return
	}
	logger.Info(ctx, "activity retention started", zap.Int("days", j.days), zap.Duration("interval", j.interval))
	safe.Every(ctx, j.interval, func(ctx context.Context) {
		_, _ = j.RunOnce(ctx)
	})
}

// RunOnce 没抢到锁时返回 (0, false)
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, bool) {
	// 锁的 TTL 比周期略长，主节点挂掉后下个周期别人能接手
	if j.locker != nil && !j.locker.TryAcquireMaster(ctx, retentionLockKey, j.interval+j.interval/2) {
		logger.Debug(ctx, "retention skipped, not master")
		return 0, false
	}
	n, err := j.audit.DeleteOlderThan(ctx, j.days)
	if err != nil {
		logger.Error(ctx, "activity retention failed", zap.Error(err))
		return 0, true
	}
	return n, true
}
