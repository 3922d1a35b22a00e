package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/besteffort"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

const remoteAuditTimeout = 3 * time.Second

// AuditService 活动日志：只追加，查询 / 聚合 / 按策略清理
type AuditService struct {
	store domain.ActivityStore
	sink  domain.AuditSink // 生产环境的远端审计，可为 nil
	now   func() time.Time
}

func NewAuditService(store domain.ActivityStore, sink domain.AuditSink) *AuditService {
	return &AuditService{store: store, sink: sink, now: time.Now}
}

// Append 写失败只记日志，返回的 Outcome 由调用方决定是否关心
func (s *AuditService) Append(ctx context.Context, rec *domain.ActivityRecord) besteffort.Outcome {
	if rec.Status == "" {
		rec.Status = domain.StatusSuccess
	}
	rec.Timestamp = s.now().UTC()

	out := besteffort.Do(ctx, "append_activity", func(ctx context.Context) error {
		return s.store.CreateActivity(ctx, rec)
	})

	if rec.Environment == domain.EnvProduction && s.sink != nil {
		besteffort.Do(ctx, "remote_audit", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, remoteAuditTimeout)
			defer cancel()
			return s.sink.SendAudit(ctx, rec)
		})
	}
	return out
}

func (s *AuditService) Query(ctx context.Context, f domain.ActivityFilter, page, pageSize int) ([]domain.ActivityRecord, int64, error) {
	return s.store.QueryActivities(ctx, f, page, pageSize)
}

// AggregateByField field 只能是 status / action / method / environment
func (s *AuditService) AggregateByField(ctx context.Context, field string, f domain.ActivityFilter) ([]domain.FieldCount, error) {
	return s.store.AggregateActivities(ctx, field, f)
}

// Stats 按状态、动作、方式统计；period 覆盖 f.Start
func (s *AuditService) Stats(ctx context.Context, f domain.ActivityFilter, period string) (*domain.ActivityStats, error) {
	if start := domain.PeriodStart(period, s.now()); start != nil {
		f.Start = start
	}

	byStatus, err := s.store.AggregateActivities(ctx, "status", f)
	if err != nil {
		return nil, err
	}
	st := &domain.ActivityStats{
		ByStatus: map[domain.Status]int64{
			domain.StatusSuccess: 0,
			domain.StatusFailure: 0,
			domain.StatusPending: 0,
		},
	}
	for _, c := range byStatus {
		st.ByStatus[domain.Status(c.Value)] = c.Count
		st.Total += c.Count
	}
	if st.ByAction, err = s.store.AggregateActivities(ctx, "action", f); err != nil {
		return nil, err
	}
	if st.ByMethod, err = s.store.AggregateActivities(ctx, "method", f); err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteOlderThan days 必须为正数
func (s *AuditService) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	return s.Purge(ctx, domain.RetentionRequest{OlderThanDays: &days})
}

func (s *AuditService) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	return s.Purge(ctx, domain.RetentionRequest{SessionID: sessionID})
}

// Purge 至少一个条件；两个都给时取交集
func (s *AuditService) Purge(ctx context.Context, req domain.RetentionRequest) (int64, error) {
	if req.OlderThanDays == nil && req.SessionID == "" {
		return 0, xerr.NewErrCode(xerr.InvalidRetentionRequest)
	}
	var before *time.Time
	if req.OlderThanDays != nil {
		if *req.OlderThanDays <= 0 {
			return 0, xerr.New(xerr.ValidationError, "olderThan must be a positive number of days")
		}
		t := s.now().UTC().AddDate(0, 0, -*req.OlderThanDays)
		before = &t
	}

	n, err := s.store.DeleteActivities(ctx, before, req.SessionID)
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "activities purged",
		zap.Int64("deleted", n),
		zap.String("session_id", req.SessionID),
		zap.Any("older_than_days", req.OlderThanDays))
	return n, nil
}
