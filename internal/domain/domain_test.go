package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/pkg/xerr"
)

func TestNetwork(t *testing.T) {
	tests := []struct {
		in      string
		chainID int64
		native  string
	}{
		{"development", 1337, "ETH"},
		{"Mainnet", 1, "ETH"},
		{"polygon", 137, "MATIC"},
		{" bsc ", 56, "BNB"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseNetwork(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.chainID, n.ChainID())
			assert.Equal(t, tt.native, n.NativeSymbol())
		})
	}

	_, err := ParseNetwork("solana")
	assert.True(t, xerr.IsCode(err, xerr.ValidationError))
}

func TestParseEnvironment(t *testing.T) {
	e, err := ParseEnvironment("")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, e)

	_, err = ParseEnvironment("staging")
	assert.Error(t, err)
}

func TestTokenRecord_FormattedBalance(t *testing.T) {
	tok := TokenRecord{Balance: "1500000", Decimals: 6}
	assert.Equal(t, "1.5", tok.FormattedBalance().String())

	bad := TokenRecord{Balance: "n/a", Decimals: 18}
	assert.Equal(t, 0, bad.BalanceInt().Cmp(big.NewInt(0)))
}

func TestDetails_ValueScan(t *testing.T) {
	d := Details{"error": "timeout", "attempt": 2}
	v, err := d.Value()
	require.NoError(t, err)

	var back Details
	require.NoError(t, back.Scan(v))
	assert.Equal(t, "timeout", back["error"])
	assert.Equal(t, float64(2), back["attempt"])

	require.NoError(t, back.Scan(nil))
	assert.Empty(t, back)
}

func TestSession_UserKey(t *testing.T) {
	assert.Equal(t, UnknownUser, Session{}.UserKey())
	assert.Equal(t, "0xabc", Session{User: " 0xABC "}.UserKey())
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		period string
		want   *time.Time
	}{
		{"day", ptrTime(time.Date(2025, 3, 30, 12, 0, 0, 0, time.UTC))},
		{"WEEK", ptrTime(time.Date(2025, 3, 24, 12, 0, 0, 0, time.UTC))},
		{"month", ptrTime(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC))}, // 2 月没有 31 号，按 Go 规则进位
		{"year", ptrTime(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC))},
		{"", nil},
		{"all", nil},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got := PeriodStart(tt.period, now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
