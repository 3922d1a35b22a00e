package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/internal/infra/persistence"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

var auditNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// seedAudit 按给定的时间点追加活动
func seedAudit(t *testing.T, svc *AuditService, at time.Time, rec domain.ActivityRecord) {
	t.Helper()
	svc.now = func() time.Time { return at }
	out := svc.Append(context.Background(), &rec)
	require.True(t, out.OK(), "%v", out.Err)
	svc.now = func() time.Time { return auditNow }
}

func newAuditFixture(t *testing.T) (*AuditService, *persistence.Repo) {
	t.Helper()
	repo := newTestRepo(t)
	svc := NewAuditService(repo, nil)
	svc.now = func() time.Time { return auditNow }

	act := func(sess string, m domain.Method, st domain.Status) domain.ActivityRecord {
		return domain.ActivityRecord{Action: domain.ActionFetchBalance, Method: m, SessionID: sess, Status: st, Environment: domain.EnvDevelopment}
	}
	seedAudit(t, svc, auditNow.Add(-time.Hour), act("s1", domain.MethodUPI, ""))
	seedAudit(t, svc, auditNow.Add(-2*time.Hour), act("s1", domain.MethodCard, domain.StatusFailure))
	seedAudit(t, svc, auditNow.AddDate(0, 0, -3), act("s2", domain.MethodUPI, domain.StatusSuccess))
	seedAudit(t, svc, auditNow.AddDate(0, 0, -40), act("s2", domain.MethodAccount, domain.StatusSuccess))
	seedAudit(t, svc, auditNow.AddDate(0, 0, -40), domain.ActivityRecord{Action: "view_records", SessionID: "s3", Status: domain.StatusPending})
	return svc, repo
}

func TestAppend_Defaults(t *testing.T) {
	svc, _ := newAuditFixture(t)
	acts, total, err := svc.Query(context.Background(), domain.ActivityFilter{SessionID: "s1"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	// 时间倒序，状态缺省 success
	assert.Equal(t, domain.MethodUPI, acts[0].Method)
	assert.Equal(t, domain.StatusSuccess, acts[0].Status)
	assert.True(t, acts[0].Timestamp.Equal(auditNow.Add(-time.Hour)))
}

func TestAppend_StoreFailureIsReported(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewAuditService(brokenWrites{repo}, nil)
	out := svc.Append(context.Background(), &domain.ActivityRecord{Action: domain.ActionFetchBalance})
	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err, errDiskFull)
}

func TestAppend_RemoteOnlyInProduction(t *testing.T) {
	repo := newTestRepo(t)
	sink := &recordingSink{}
	svc := NewAuditService(repo, sink)

	svc.Append(context.Background(), &domain.ActivityRecord{Action: domain.ActionFetchBalance, Environment: domain.EnvDevelopment})
	svc.Append(context.Background(), &domain.ActivityRecord{Action: domain.ActionFetchBalance, Environment: domain.EnvProduction})
	require.Len(t, sink.recs, 1)
	assert.Equal(t, domain.EnvProduction, sink.recs[0].Environment)
}

func TestAggregateByField(t *testing.T) {
	svc, _ := newAuditFixture(t)
	ctx := context.Background()

	got, err := svc.AggregateByField(ctx, "method", domain.ActivityFilter{Action: domain.ActionFetchBalance})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.FieldCount{Value: "upi", Count: 2}, got[0])

	_, err = svc.AggregateByField(ctx, "ip_address", domain.ActivityFilter{})
	assert.True(t, xerr.IsCode(err, xerr.ValidationError))
}

func TestStats(t *testing.T) {
	svc, _ := newAuditFixture(t)
	ctx := context.Background()

	tests := []struct {
		period  string
		total   int64
		success int64
		failure int64
		pending int64
	}{
		{"day", 2, 1, 1, 0},
		{"week", 3, 2, 1, 0},
		{"", 5, 3, 1, 1},
	}
	for _, tt := range tests {
		t.Run("period="+tt.period, func(t *testing.T) {
			st, err := svc.Stats(ctx, domain.ActivityFilter{}, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.total, st.Total)
			assert.Equal(t, tt.success, st.ByStatus[domain.StatusSuccess])
			assert.Equal(t, tt.failure, st.ByStatus[domain.StatusFailure])
			assert.Equal(t, tt.pending, st.ByStatus[domain.StatusPending])
		})
	}

	st, err := svc.Stats(ctx, domain.ActivityFilter{SessionID: "s2"}, "")
	require.NoError(t, err)
	require.Len(t, st.ByAction, 1)
	assert.Equal(t, domain.FieldCount{Value: domain.ActionFetchBalance, Count: 2}, st.ByAction[0])
	assert.Len(t, st.ByMethod, 2)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	days := func(n int) *int { return &n }

	t.Run("没有任何条件", func(t *testing.T) {
		svc, _ := newAuditFixture(t)
		_, err := svc.Purge(ctx, domain.RetentionRequest{})
		assert.True(t, xerr.IsCode(err, xerr.InvalidRetentionRequest))
		assert.Equal(t, "Either olderThan or sessionId parameter is required", xerr.MsgOf(err))
	})

	t.Run("按天数", func(t *testing.T) {
		svc, _ := newAuditFixture(t)
		n, err := svc.DeleteOlderThan(ctx, 30)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		_, total, err := svc.Query(ctx, domain.ActivityFilter{}, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})

	t.Run("按会话", func(t *testing.T) {
		svc, _ := newAuditFixture(t)
		n, err := svc.DeleteBySession(ctx, "s1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("两个条件取交集", func(t *testing.T) {
		svc, _ := newAuditFixture(t)
		n, err := svc.Purge(ctx, domain.RetentionRequest{OlderThanDays: days(30), SessionID: "s2"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("天数不合法", func(t *testing.T) {
		svc, _ := newAuditFixture(t)
		_, err := svc.Purge(ctx, domain.RetentionRequest{OlderThanDays: days(0)})
		assert.True(t, xerr.IsCode(err, xerr.ValidationError))
	})
}

type fakeLocker struct{ master bool }

func (f fakeLocker) TryAcquireMaster(context.Context, string, time.Duration) bool { return f.master }

func TestRetentionJob_RunOnce(t *testing.T) {
	ctx := context.Background()

	svc, _ := newAuditFixture(t)
	n, ran := NewRetentionJob(svc, fakeLocker{master: false}, 30, time.Minute).RunOnce(ctx)
	assert.False(t, ran)
	assert.Zero(t, n)

	n, ran = NewRetentionJob(svc, fakeLocker{master: true}, 30, time.Minute).RunOnce(ctx)
	assert.True(t, ran)
	assert.EqualValues(t, 2, n)

	// 单机模式不需要锁
	n, ran = NewRetentionJob(svc, nil, 1, time.Minute).RunOnce(ctx)
	assert.True(t, ran)
	assert.EqualValues(t, 1, n)
}
