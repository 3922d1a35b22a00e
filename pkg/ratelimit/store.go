package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

// Store 按 key 维护令牌桶：入站按 ip+route 限流，出站按网络节流 RPC。
// 长时间不用的 key 由 janitor 回收
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
}

func NewStore(r rate.Limit, burst int, idle time.Duration) *Store {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	if burst <= 0 {
		burst = 1
	}
	return &Store{
		buckets: make(map[string]*bucket, 256),
		limit:   r,
		burst:   burst,
		idle:    idle,
	}
}

func (s *Store) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	s.mu.Unlock()
	b.lastSeen.Store(now.UnixNano())
	return b.limiter
}

// Allow 入站用，拿不到令牌立即拒绝
func (s *Store) Allow(key string) bool {
	now := time.Now()
	return s.get(key, now).AllowN(now, 1)
}

// Wait 出站用，排队等令牌直到 ctx 结束
func (s *Store) Wait(ctx context.Context, key string) error {
	return s.get(key, time.Now()).Wait(ctx)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *Store) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evict(now)
			}
		}
	}()
}

// evict 返回回收的 key 数
func (s *Store) evict(now time.Time) int {
	cut := now.Add(-s.idle).UnixNano()
	n := 0
	s.mu.Lock()
	for k, b := range s.buckets {
		if b.lastSeen.Load() < cut {
			delete(s.buckets, k)
			n++
		}
	}
	s.mu.Unlock()
	return n
}
