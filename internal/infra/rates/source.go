// Package rates 汇率查询：上游 HTTP 汇率表 + redis 缓存。
package rates

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/metrics"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// Table base 货币的汇率表，1 base = rates[X] X
type Table map[string]decimal.Decimal

type Fetcher interface {
	Table(ctx context.Context, base string) (Table, error)
}

type Cache interface {
	GetTable(ctx context.Context, base string) (Table, bool, error)
	SetTable(ctx context.Context, base string, t Table, ttl time.Duration) error
}

// Source 先查缓存，未命中时同一个 base 只回源一次
type Source struct {
	fetcher Fetcher
	cache   Cache // 可为 nil
	sf      singleflight.Group
	ttl     time.Duration
	// 回源不跟随某一个调用方的 ctx，只受这个超时约束
	flightTimeout time.Duration
}

var _ domain.RateSource = (*Source)(nil)

func NewSource(fetcher Fetcher, cache Cache, ttl time.Duration) *Source {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Source{fetcher: fetcher, cache: cache, ttl: ttl, flightTimeout: 10 * time.Second}
}

func (s *Source) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return decimal.Zero, xerr.New(xerr.ValidationError, "currency code required")
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	t, err := s.table(ctx, from)
	if err != nil {
		metrics.RatesLookupTotal.WithLabelValues("error").Inc()
		return decimal.Zero, xerr.Wrap(err, xerr.ConversionError, "rate service failed for "+from)
	}
	rate, ok := t[to]
	if !ok {
		return decimal.Zero, xerr.New(xerr.ConversionError, "no rate for "+from+"->"+to)
	}
	return rate, nil
}

func (s *Source) table(ctx context.Context, base string) (Table, error) {
	if s.cache != nil {
		t, ok, err := s.cache.GetTable(ctx, base)
		if err != nil {
			logger.Warn(ctx, "rates cache get failed", zap.String("base", base), zap.Error(err))
		}
		if ok {
			metrics.RatesLookupTotal.WithLabelValues("cache").Inc()
			return t, nil
		}
	}

	ch := s.sf.DoChan(base, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTimeout)
		defer cancel()
		t, err := s.fetcher.Table(fctx, base)
		if err != nil {
			return nil, err
		}
		metrics.RatesLookupTotal.WithLabelValues("upstream").Inc()
		if s.cache != nil {
			if err := s.cache.SetTable(fctx, base, t, s.ttl); err != nil {
				logger.Warn(fctx, "rates cache set failed", zap.String("base", base), zap.Error(err))
			}
		}
		return t, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Table), nil
	}
}
