package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "token_browser"

var (
	RateLimitBlockTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_block_total",
			Help:      "Total number of rate limit blocks.",
		},
		[]string{"route"},
	)

	CBRejectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuitbreaker_reject_total",
			Help:      "Total number of circuit breaker rejections.",
		},
		[]string{"breaker", "reason"},
	)

	CBState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuitbreaker_state",
			Help:      "Circuit breaker state (0/1).",
		},
		[]string{"breaker", "state"}, // state: closed/open/half_open
	)

	// 对账结果来源: live / cache(节点不可用时回退)
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciled reads by kind and source.",
		},
		[]string{"kind", "network", "source"},
	)

	ChainCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_call_duration_seconds",
			Help:      "Chain RPC latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms ~ 10s
		},
		[]string{"network", "call", "status"},
	)

	BankingFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "banking_fetch_total",
			Help:      "Banking balance fetches by environment, method and status.",
		},
		[]string{"environment", "method", "status"},
	)

	// 尽力写入失败次数 (缓存写 / 审计写)
	BestEffortFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_write_failures_total",
			Help:      "Best-effort persistence writes that failed.",
		},
		[]string{"op"},
	)

	RatesLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rates_lookup_total",
			Help:      "Currency rate table lookups by source.",
		},
		[]string{"source"}, // cache / upstream / error
	)
)

var registerOnce sync.Once

// MustRegister 重复调用安全（测试里多次建 router）
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RateLimitBlockTotal, CBRejectTotal, CBState,
			ReconcileTotal, ChainCallDuration, BankingFetchTotal,
			BestEffortFailures, RatesLookupTotal,
		)
	})
}
