// Package bankapi 银行余额提供方：开发环境的模拟实现和生产环境的 HTTP 客户端。
package bankapi

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chandraveer04/token-browser/internal/domain"
)

// DefaultLatency 模拟网络耗时
const DefaultLatency = 800 * time.Millisecond

type fixture struct {
	name     string
	balance  string
	currency string
}

// 固定账户，key 为 method:identifier
var fixtures = map[string]fixture{
	"upi:user@bank":         {"John Doe", "25000.75", "INR"},
	"account:12345678901":   {"Jane Smith", "5430.25", "USD"},
	"card:4111111111111111": {"Test User", "2150.50", "EUR"},
}

type Simulated struct {
	latency time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ domain.BalanceProvider = (*Simulated)(nil)

// NewSimulated latency<0 表示不延迟
func NewSimulated(latency time.Duration) *Simulated {
	if latency < 0 {
		latency = 0
	}
	return &Simulated{
		latency: latency,
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

func fixtureKey(method domain.Method, identifier string) string {
	return string(method) + ":" + identifier
}

// IsFixture 是否是内置的测试账户
func (s *Simulated) IsFixture(method domain.Method, identifier string) bool {
	_, ok := fixtures[fixtureKey(method, identifier)]
	return ok
}

func (s *Simulated) FetchBalance(ctx context.Context, method domain.Method, identifier string) (*domain.BankBalance, error) {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	if f, ok := fixtures[fixtureKey(method, identifier)]; ok {
		return &domain.BankBalance{
			Name:     f.name,
			Balance:  decimal.RequireFromString(f.balance),
			Currency: f.currency,
		}, nil
	}

	// [0, 10000)，两位小数
	s.mu.Lock()
	cents := s.rnd.Int64N(1_000_000)
	s.mu.Unlock()
	return &domain.BankBalance{
		Name:     "Demo User",
		Balance:  decimal.New(cents, -2),
		Currency: "USD",
	}, nil
}
