package persistence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/orm"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := orm.Open(&orm.Config{Driver: orm.DriverSQLite, DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	repo := New(db)
	require.NoError(t, repo.AutoMigrate(context.Background()))
	return repo
}

const (
	owner = "0xAbC0000000000000000000000000000000000001"
	usdt  = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

func TestUpsertToken_LastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &domain.TokenRecord{Owner: owner, Address: usdt, Network: domain.NetworkMainnet, Name: "Tether", Symbol: "USDT", Decimals: 6, Balance: "100"}
	require.NoError(t, repo.UpsertToken(ctx, first))
	second := &domain.TokenRecord{Owner: owner, Address: usdt, Network: domain.NetworkMainnet, Name: "Tether USD", Symbol: "USDT", Decimals: 6, Balance: "250"}
	require.NoError(t, repo.UpsertToken(ctx, second))

	got, err := repo.QueryTokens(ctx, owner, domain.NetworkMainnet)
	require.NoError(t, err)
	require.Len(t, got, 1, "同一 (owner, address, network) 只能有一条")
	assert.Equal(t, "250", got[0].Balance)
	assert.Equal(t, "Tether USD", got[0].Name)
	assert.True(t, got[0].LastUpdated.After(first.LastUpdated))
	// 地址统一小写
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", got[0].Address)
}

func TestUpsertToken_NetworkIsPartOfKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertToken(ctx, &domain.TokenRecord{Owner: owner, Address: usdt, Network: domain.NetworkMainnet, Balance: "1"}))
	require.NoError(t, repo.UpsertToken(ctx, &domain.TokenRecord{Owner: owner, Address: usdt, Network: domain.NetworkBSC, Balance: "2"}))

	all, err := repo.QueryTokens(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bsc, err := repo.QueryTokens(ctx, owner, domain.NetworkBSC)
	require.NoError(t, err)
	require.Len(t, bsc, 1)
	assert.Equal(t, "2", bsc[0].Balance)
}

func TestUpsertToken_ConcurrentStampsAreMonotonic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.UpsertToken(ctx, &domain.TokenRecord{Owner: owner, Address: usdt, Network: domain.NetworkMainnet, Balance: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	got, err := repo.QueryTokens(ctx, owner, domain.NetworkMainnet)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].LastUpdated.IsZero())

	a, b := repo.stamp(), repo.stamp()
	assert.True(t, b.After(a))
}

func TestUpsertTransfer_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := func(amount string) *domain.TransferRecord {
		return &domain.TransferRecord{
			TransactionHash: "0xhash1", TokenAddress: usdt, From: owner, To: "0xBEEF",
			Amount: amount, Decimals: 6, BlockNumber: 10, Network: domain.NetworkMainnet,
			Timestamp: time.Unix(1700000000, 0).UTC(),
		}
	}

	inserted, err := repo.UpsertTransfer(ctx, rec("5"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.UpsertTransfer(ctx, rec("999"))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, total, err := repo.QueryTransfers(ctx, domain.TransferFilter{Address: owner}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "5", got[0].Amount, "重复写入不能改动原记录")
}

func seedTransfers(t *testing.T, repo *Repo) {
	t.Helper()
	ctx := context.Background()
	rows := []domain.TransferRecord{
		{TransactionHash: "0x01", TokenAddress: usdt, From: owner, To: "0xb", Amount: "1", BlockNumber: 5, Network: domain.NetworkMainnet},
		{TransactionHash: "0x02", TokenAddress: usdt, From: "0xb", To: owner, Amount: "2", BlockNumber: 9, Network: domain.NetworkMainnet},
		{TransactionHash: "0x03", TokenAddress: "0xdai", From: "0xc", To: owner, Amount: "3", BlockNumber: 7, Network: domain.NetworkMainnet},
		{TransactionHash: "0x04", TokenAddress: usdt, From: "0xc", To: "0xd", Amount: "4", BlockNumber: 8, Network: domain.NetworkMainnet},
		{TransactionHash: "0x05", TokenAddress: usdt, From: owner, To: "0xd", Amount: "5", BlockNumber: 3, Network: domain.NetworkPolygon},
	}
	for i := range rows {
		_, err := repo.UpsertTransfer(ctx, &rows[i])
		require.NoError(t, err)
	}
}

func TestQueryTransfers_Filters(t *testing.T) {
	repo := newTestRepo(t)
	seedTransfers(t, repo)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.TransferFilter
		want   []string
	}{
		{"from 或 to 命中，区块倒序", domain.TransferFilter{Address: owner}, []string{"0x02", "0x03", "0x01", "0x05"}},
		{"限定网络", domain.TransferFilter{Address: owner, Network: domain.NetworkMainnet}, []string{"0x02", "0x03", "0x01"}},
		{"限定代币", domain.TransferFilter{Address: owner, TokenAddress: "0xDAI"}, []string{"0x03"}},
		{"不限地址", domain.TransferFilter{Network: domain.NetworkMainnet}, []string{"0x02", "0x04", "0x03", "0x01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.QueryTransfers(ctx, tt.filter, 1, 20)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), total)
			hashes := make([]string, 0, len(got))
			for _, g := range got {
				hashes = append(hashes, g.TransactionHash)
			}
			assert.Equal(t, tt.want, hashes)
		})
	}

	page2, total, err := repo.QueryTransfers(ctx, domain.TransferFilter{Address: owner}, 2, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "0x05", page2[0].TransactionHash)
}

func TestTransferStats(t *testing.T) {
	repo := newTestRepo(t)
	seedTransfers(t, repo)

	st, err := repo.TransferStats(context.Background(), domain.TransferFilter{Address: owner, Network: domain.NetworkMainnet})
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Sent)
	assert.EqualValues(t, 2, st.Received)
	assert.EqualValues(t, 3, st.Total)
	assert.EqualValues(t, 2, st.UniqueTokens)

	_, err = repo.TransferStats(context.Background(), domain.TransferFilter{})
	assert.True(t, xerr.IsCode(err, xerr.RequestParamsError))
}

func TestUpsertBanking_UpdatesInPlace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := func(bal string, sid string) *domain.BankingRecord {
		return &domain.BankingRecord{
			User: "", Method: domain.MethodUPI, MaskedIdentifier: "u****@bank",
			Name: "John Doe", Balance: decimal.RequireFromString(bal), Currency: "INR",
			SessionID: sid, Environment: domain.EnvDevelopment,
		}
	}
	require.NoError(t, repo.UpsertBanking(ctx, rec("100.5", "s1")))
	require.NoError(t, repo.UpsertBanking(ctx, rec("25000.75", "s2")))

	got, err := repo.ListBanking(ctx, domain.UnknownUser, domain.MethodUPI)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.RequireFromString("25000.75").Equal(got[0].Balance))
	assert.Equal(t, "s2", got[0].SessionID)

	none, err := repo.ListBanking(ctx, domain.UnknownUser, domain.MethodCard)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func seedActivities(t *testing.T, repo *Repo, now time.Time) {
	t.Helper()
	ctx := context.Background()
	rows := []domain.ActivityRecord{
		{Action: domain.ActionFetchBalance, Method: domain.MethodUPI, SessionID: "s1", Environment: domain.EnvDevelopment, Timestamp: now.Add(-40 * 24 * time.Hour)},
		{Action: domain.ActionFetchBalance, Method: domain.MethodCard, SessionID: "s1", Status: domain.StatusFailure, Environment: domain.EnvDevelopment, Timestamp: now.Add(-2 * 24 * time.Hour), Details: domain.Details{"error": "invalid"}},
		{Action: domain.ActionFetchBalance, Method: domain.MethodUPI, SessionID: "s2", Environment: domain.EnvProduction, Timestamp: now.Add(-1 * time.Hour)},
		{Action: "convert_currency", Method: domain.MethodUPI, SessionID: "s2", Environment: domain.EnvProduction, Timestamp: now},
	}
	for i := range rows {
		require.NoError(t, repo.CreateActivity(ctx, &rows[i]))
	}
}

func TestQueryActivities(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now().UTC()
	seedActivities(t, repo, now)
	ctx := context.Background()

	all, total, err := repo.QueryActivities(ctx, domain.ActivityFilter{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Equal(t, "convert_currency", all[0].Action, "时间倒序")
	assert.Equal(t, domain.StatusSuccess, all[0].Status, "状态默认 success")

	failed, total, err := repo.QueryActivities(ctx, domain.ActivityFilter{Status: domain.StatusFailure}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "invalid", failed[0].Details["error"])

	start := now.Add(-3 * 24 * time.Hour)
	recent, total, err := repo.QueryActivities(ctx, domain.ActivityFilter{SessionID: "s1", Start: &start}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, domain.MethodCard, recent[0].Method)
}

func TestAggregateActivities(t *testing.T) {
	repo := newTestRepo(t)
	seedActivities(t, repo, time.Now().UTC())
	ctx := context.Background()

	byMethod, err := repo.AggregateActivities(ctx, "method", domain.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, byMethod, 2)
	assert.Equal(t, domain.FieldCount{Value: "upi", Count: 3}, byMethod[0])
	assert.Equal(t, domain.FieldCount{Value: "card", Count: 1}, byMethod[1])

	_, err = repo.AggregateActivities(ctx, "ip_address; DROP TABLE activities", domain.ActivityFilter{})
	assert.True(t, xerr.IsCode(err, xerr.ValidationError))
}

func TestDeleteActivities(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now().UTC()
	seedActivities(t, repo, now)
	ctx := context.Background()

	_, err := repo.DeleteActivities(ctx, nil, "")
	assert.True(t, xerr.IsCode(err, xerr.InvalidRetentionRequest))

	n, err := repo.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteBySession(ctx, "s2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, total, err := repo.QueryActivities(ctx, domain.ActivityFilter{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
