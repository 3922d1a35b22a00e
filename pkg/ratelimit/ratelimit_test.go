package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/pkg/xerr"
)

func TestManager_TripsAfterConsecutiveFailures(t *testing.T) {
	m := NewManager(Rule{TripConsecutiveFailures: 3, Timeout: time.Minute}, nil)
	boom := errors.New("dial tcp: connection refused")

	for i := 0; i < 3; i++ {
		err := m.Do("chain:mainnet", func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	called := false
	err := m.Do("chain:mainnet", func() error { called = true; return nil })
	assert.True(t, IsRejected(err))
	assert.False(t, called)

	// 不同名字互不影响
	assert.NoError(t, m.Do("chain:polygon", func() error { return nil }))
}

func TestManager_BusinessErrorsDoNotTrip(t *testing.T) {
	m := NewManager(Rule{TripConsecutiveFailures: 2, Timeout: time.Minute}, nil)
	for i := 0; i < 5; i++ {
		err := m.Do("bank", func() error { return xerr.New(xerr.ValidationError, "bad id") })
		assert.False(t, IsRejected(err))
	}
}

func TestManager_CustomIsSuccessful(t *testing.T) {
	reverted := errors.New("execution reverted")
	m := NewManager(Rule{TripConsecutiveFailures: 1, Timeout: time.Minute}, map[string]Rule{
		"chain:bsc": {
			MaxRequests:             1,
			Interval:                time.Second,
			Timeout:                 time.Minute,
			TripConsecutiveFailures: 1,
			IsSuccessful:            func(err error) bool { return err == nil || errors.Is(err, reverted) },
		},
	})
	for i := 0; i < 3; i++ {
		err := m.Do("chain:bsc", func() error { return reverted })
		assert.ErrorIs(t, err, reverted)
	}
}

func TestStore_AllowPerKey(t *testing.T) {
	s := NewStore(1, 2, time.Minute)
	assert.True(t, s.Allow("1.1.1.1:/api/tokens"))
	assert.True(t, s.Allow("1.1.1.1:/api/tokens"))
	assert.False(t, s.Allow("1.1.1.1:/api/tokens"))
	assert.True(t, s.Allow("2.2.2.2:/api/tokens"))
}

func TestStore_Evict(t *testing.T) {
	s := NewStore(1, 1, time.Minute)
	s.Allow("old")
	s.Allow("fresh")
	s.buckets["old"].lastSeen.Store(time.Now().Add(-2 * time.Minute).UnixNano())

	assert.Equal(t, 1, s.evict(time.Now()))
	assert.Equal(t, 1, s.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.StartJanitor(ctx, time.Millisecond)
}

func TestStore_WaitHonorsContext(t *testing.T) {
	s := NewStore(0.01, 1, time.Minute)
	require.NoError(t, s.Wait(context.Background(), "chain:mainnet"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Wait(ctx, "chain:mainnet"))
	// 其他网络不受影响
	assert.NoError(t, s.Wait(context.Background(), "chain:bsc"))
}
