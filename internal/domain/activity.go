package domain

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPending Status = "pending"
)

const ActionFetchBalance = "fetch_balance"

// Details 活动附加信息，落库为 JSON 文本
type Details map[string]any

func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Details) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("details: unsupported type %T", src)
	}
	m := map[string]any{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
	}
	*d = m
	return nil
}

// ActivityRecord 只追加
type ActivityRecord struct {
	ID               uint64      `gorm:"primaryKey" json:"id"`
	Action           string      `gorm:"size:64;not null;index" json:"action"`
	Method           Method      `gorm:"size:16;index" json:"method"`
	MaskedIdentifier string      `gorm:"size:128;index" json:"maskedIdentifier"`
	Environment      Environment `gorm:"size:16;index" json:"environment"`
	SessionID        string      `gorm:"size:64;index" json:"sessionId"`
	IPAddress        string      `gorm:"size:64" json:"ipAddress"`
	UserAgent        string      `gorm:"size:512" json:"userAgent"`
	Status           Status      `gorm:"size:16;not null;default:success;index" json:"status"`
	Details          Details     `gorm:"type:text" json:"details"`
	Timestamp        time.Time   `gorm:"index" json:"timestamp"`
}

func (ActivityRecord) TableName() string { return "activities" }

// ActivityFilter 空字段表示不过滤
type ActivityFilter struct {
	SessionID        string
	Action           string
	Method           Method
	MaskedIdentifier string
	Environment      Environment
	Status           Status
	Start            *time.Time
	End              *time.Time
}

type FieldCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type ActivityStats struct {
	Total    int64            `json:"total"`
	ByStatus map[Status]int64 `json:"byStatus"`
	ByAction []FieldCount     `json:"byAction"`
	ByMethod []FieldCount     `json:"byMethod"`
}

// RetentionRequest 至少给一个条件；两个都给则取交集
type RetentionRequest struct {
	OlderThanDays *int
	SessionID     string
}

type ActivityStore interface {
	CreateActivity(ctx context.Context, rec *ActivityRecord) error
	QueryActivities(ctx context.Context, f ActivityFilter, page, pageSize int) ([]ActivityRecord, int64, error)
	AggregateActivities(ctx context.Context, field string, f ActivityFilter) ([]FieldCount, error)
	DeleteActivities(ctx context.Context, before *time.Time, sessionID string) (int64, error)
}

// AuditSink 远端审计（生产环境的银行审计接口）
type AuditSink interface {
	SendAudit(ctx context.Context, rec *ActivityRecord) error
}
