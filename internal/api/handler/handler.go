// Package handler HTTP 接口，只做参数解析和结果封装，业务都在 service。
package handler

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/common"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

const (
	HeaderSessionID   = "X-Session-Id"
	HeaderUserAddress = "X-User-Address"
)

type ChainService interface {
	TokensFor(ctx context.Context, owner string, network domain.Network) (*domain.TokenView, error)
	TransfersFor(ctx context.Context, owner, asset string, network domain.Network) (*domain.TransferView, error)
	NativeBalance(ctx context.Context, owner string, network domain.Network) (*domain.NativeBalance, error)
	History(ctx context.Context, f domain.TransferFilter, page, pageSize int) ([]domain.TransferRecord, int64, error)
	TransferStats(ctx context.Context, address string, network domain.Network, period string) (*domain.TransferStats, error)
}

type BankingService interface {
	FetchBalance(ctx context.Context, sess domain.Session, method domain.Method, id string, env domain.Environment) (*domain.BankingRecord, error)
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error)
	GenerateSessionToken() string
	RecordsFor(ctx context.Context, user string, method domain.Method) ([]domain.BankingRecord, error)
}

type AuditService interface {
	Query(ctx context.Context, f domain.ActivityFilter, page, pageSize int) ([]domain.ActivityRecord, int64, error)
	Stats(ctx context.Context, f domain.ActivityFilter, period string) (*domain.ActivityStats, error)
	Purge(ctx context.Context, req domain.RetentionRequest) (int64, error)
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(total int64, page, size int) Pagination {
	return Pagination{
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}
}

func badParams(c *gin.Context, err error) {
	common.FailErr(c, xerr.Wrap(err, xerr.RequestParamsError, "参数错误"))
}

// sessionFrom 会话信息来自请求头，不从请求体取
func sessionFrom(c *gin.Context) domain.Session {
	return domain.Session{
		ID:        strings.TrimSpace(c.GetHeader(HeaderSessionID)),
		User:      strings.TrimSpace(c.GetHeader(HeaderUserAddress)),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// parseTime 支持 RFC3339 和 2006-01-02
func parseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, xerr.New(xerr.RequestParamsError, "invalid time: "+s)
}

// optionalNetwork 空表示不限
func optionalNetwork(s string) (domain.Network, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return domain.ParseNetwork(s)
}
