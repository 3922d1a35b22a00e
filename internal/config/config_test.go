package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/orm"
)

func TestShippedConfigDecodes(t *testing.T) {
	v := viper.New()
	v.SetConfigFile("../../config/token-browser.yaml")
	require.NoError(t, v.ReadInConfig())

	var c Config
	require.NoError(t, v.Unmarshal(&c))
	assert.Empty(t, c.Normalize())

	assert.Equal(t, "token-browser", c.Name)
	assert.Equal(t, orm.DriverSQLite, c.DB.Driver)
	assert.Equal(t, 10*time.Second, c.Chain.CallTimeout)
	assert.Equal(t, 20.0, c.Chain.RPS)
	assert.Equal(t, 800*time.Millisecond, c.Banking.SimulatedLatency)
	assert.False(t, c.Banking.Production())

	dev := c.Chain.Networks["development"]
	assert.Equal(t, ModeSimulated, dev.Mode)
	assert.Len(t, dev.DemoOwners, 2)
	assert.Equal(t, ModeLive, c.Chain.Networks["mainnet"].Mode)

	assert.Equal(t, uint32(3), c.Breaker.Default.MaxRequests)
	assert.Equal(t, 30*time.Second, c.Breaker.Rules["bank:balance"].Timeout)
}

func TestNormalize(t *testing.T) {
	c := Config{Chain: ChainConfig{Networks: map[string]NetworkConfig{
		"polygon": {RPCURL: "http://node"},
		"bsc":     {},
		"solana":  {Mode: ModeLive},
	}}}
	unknown := c.Normalize()

	assert.Equal(t, []string{"solana"}, unknown)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, orm.DriverSQLite, c.DB.Driver)
	assert.Equal(t, ModeLive, c.Chain.Networks["polygon"].Mode)
	assert.Equal(t, ModeSimulated, c.Chain.Networks["bsc"].Mode)
	assert.NotContains(t, c.Chain.Networks, "solana")
}

func TestCandidatesOverride(t *testing.T) {
	defaults := map[domain.Network][]domain.Candidate{
		domain.NetworkMainnet: {{Address: "0xa"}},
		domain.NetworkBSC:     {{Address: "0xb"}},
	}
	c := ChainConfig{Networks: map[string]NetworkConfig{
		"bsc": {Candidates: []domain.Candidate{{Address: "0xc", Symbol: "C"}}},
	}}
	got := c.Candidates(defaults)

	assert.Equal(t, defaults[domain.NetworkMainnet], got[domain.NetworkMainnet])
	assert.Equal(t, "0xc", got[domain.NetworkBSC][0].Address)
	assert.Equal(t, "0xb", defaults[domain.NetworkBSC][0].Address)
}
