package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/orm"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// 允许聚合的字段，防止拼接任意列名
var aggregatable = map[string]string{
	"status":      "status",
	"action":      "action",
	"method":      "method",
	"environment": "environment",
}

func (r *Repo) CreateActivity(ctx context.Context, rec *domain.ActivityRecord) error {
	if rec.Status == "" {
		rec.Status = domain.StatusSuccess
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Details == nil {
		rec.Details = domain.Details{}
	}
	if err := r.conn(ctx).Create(rec).Error; err != nil {
		return xerr.Wrap(err, xerr.DbError, "create activity failed")
	}
	return nil
}

func (r *Repo) activityScope(ctx context.Context, f domain.ActivityFilter) *gorm.DB {
	q := r.conn(ctx).Model(&domain.ActivityRecord{})
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Method != "" {
		q = q.Where("method = ?", f.Method)
	}
	if f.MaskedIdentifier != "" {
		q = q.Where("masked_identifier = ?", f.MaskedIdentifier)
	}
	if f.Environment != "" {
		q = q.Where("environment = ?", f.Environment)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Start != nil {
		q = q.Where("timestamp >= ?", f.Start.UTC())
	}
	if f.End != nil {
		q = q.Where("timestamp <= ?", f.End.UTC())
	}
	return q
}

// QueryActivities 时间倒序
func (r *Repo) QueryActivities(ctx context.Context, f domain.ActivityFilter, page, pageSize int) ([]domain.ActivityRecord, int64, error) {
	var total int64
	if err := r.activityScope(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, xerr.Wrap(err, xerr.DbError, "count activities failed")
	}
	var out []domain.ActivityRecord
	q := r.activityScope(ctx, f).Order("timestamp DESC").Order("id DESC")
	if err := orm.ApplyPagination(q, page, pageSize).Find(&out).Error; err != nil {
		return nil, 0, xerr.Wrap(err, xerr.DbError, "query activities failed")
	}
	return out, total, nil
}

// AggregateActivities 按字段分组计数，数量倒序
func (r *Repo) AggregateActivities(ctx context.Context, field string, f domain.ActivityFilter) ([]domain.FieldCount, error) {
	col, ok := aggregatable[field]
	if !ok {
		return nil, xerr.New(xerr.ValidationError, "unsupported aggregate field: "+field)
	}
	var out []domain.FieldCount
	err := r.activityScope(ctx, f).
		Select(col + " AS value, COUNT(*) AS count").
		Group(col).
		Order("count DESC").
		Order(col + " ASC").
		Scan(&out).Error
	if err != nil {
		return nil, xerr.Wrap(err, xerr.DbError, "aggregate activities failed")
	}
	return out, nil
}

// DeleteActivities 两个条件同时给出时取交集；都没有时拒绝，避免清空整表
func (r *Repo) DeleteActivities(ctx context.Context, before *time.Time, sessionID string) (int64, error) {
	if before == nil && sessionID == "" {
		return 0, xerr.NewErrCode(xerr.InvalidRetentionRequest)
	}
	q := r.conn(ctx)
	if before != nil {
		q = q.Where("timestamp < ?", before.UTC())
	}
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	res := q.Delete(&domain.ActivityRecord{})
	if res.Error != nil {
		return 0, xerr.Wrap(res.Error, xerr.DbError, "delete activities failed")
	}
	return res.RowsAffected, nil
}

// DeleteBefore 删除 cutoff 之前的活动
func (r *Repo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.DeleteActivities(ctx, &cutoff, "")
}

func (r *Repo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, xerr.NewErrCode(xerr.InvalidRetentionRequest)
	}
	return r.DeleteActivities(ctx, nil, sessionID)
}
