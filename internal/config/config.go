// Package config token-browser 总配置，由 pkg/config.LoadAndWatch 填充。
package config

import (
	"time"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/orm"
	"github.com/chandraveer04/token-browser/pkg/ratelimit"
	"github.com/chandraveer04/token-browser/pkg/xredis"
)

const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

type Config struct {
	Name    string        `mapstructure:"name" yaml:"name"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Trace   TraceConfig   `mapstructure:"trace" yaml:"trace"`
	DB      orm.Config    `mapstructure:"db" yaml:"db"`
	Redis   xredis.Config `mapstructure:"redis" yaml:"redis"` // addr 为空则不启用
	Chain   ChainConfig   `mapstructure:"chain" yaml:"chain"`
	Banking BankingConfig `mapstructure:"banking" yaml:"banking"`
	Rates   RatesConfig   `mapstructure:"rates" yaml:"rates"`
	Audit   AuditConfig   `mapstructure:"audit" yaml:"audit"`
	Breaker BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type HTTPConfig struct {
	Addr         string   `mapstructure:"addr" yaml:"addr"`
	RPS          float64  `mapstructure:"rps" yaml:"rps"`
	Burst        int      `mapstructure:"burst" yaml:"burst"`
	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

type TraceConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
}

type ChainConfig struct {
	Lookback     uint64                   `mapstructure:"lookback" yaml:"lookback"`
	MaxTransfers int                      `mapstructure:"max_transfers" yaml:"max_transfers"`
	Concurrency  int                      `mapstructure:"concurrency" yaml:"concurrency"`
	CallTimeout  time.Duration            `mapstructure:"call_timeout" yaml:"call_timeout"`
	DevAccounts  int                      `mapstructure:"dev_accounts" yaml:"dev_accounts"`
	RPS          float64                  `mapstructure:"rps" yaml:"rps"` // 每个网络出站 RPC 上限，<=0 不限
	Burst        int                      `mapstructure:"burst" yaml:"burst"`
	Networks     map[string]NetworkConfig `mapstructure:"networks" yaml:"networks"`
}

// NetworkConfig mode=simulated 时用内置模拟链，DemoOwners 会预置余额和转账
type NetworkConfig struct {
	Mode       string             `mapstructure:"mode" yaml:"mode"`
	RPCURL     string             `mapstructure:"rpc_url" yaml:"rpc_url"`
	Candidates []domain.Candidate `mapstructure:"candidates" yaml:"candidates"`
	DemoOwners []string           `mapstructure:"demo_owners" yaml:"demo_owners"`
}

type BankingConfig struct {
	// 生产环境的加密通道密钥和 API Key 建议放 .env
	Secret           string        `mapstructure:"secret" yaml:"secret"`
	APIKey           string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SimulatedLatency time.Duration `mapstructure:"simulated_latency" yaml:"simulated_latency"`
}

// Production 未配置 base_url 时不开放生产环境
func (b BankingConfig) Production() bool {
	return b.BaseURL != "" && b.Secret != ""
}

type RatesConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// 原生币余额折算成的法币，空则不折算
	Fiat string `mapstructure:"fiat" yaml:"fiat"`
}

type AuditConfig struct {
	// <=0 关闭定时清理
	RetentionDays     int           `mapstructure:"retention_days" yaml:"retention_days"`
	RetentionInterval time.Duration `mapstructure:"retention_interval" yaml:"retention_interval"`
}

type BreakerConfig struct {
	Default ratelimit.Rule            `mapstructure:"default" yaml:"default"`
	Rules   map[string]ratelimit.Rule `mapstructure:"rules" yaml:"rules"`
}

// Normalize 补默认值，返回不认识的网络名
func (c *Config) Normalize() (unknown []string) {
	if c.Name == "" {
		c.Name = "token-browser"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = orm.DriverSQLite
		if c.DB.DSN == "" {
			c.DB.DSN = "token-browser.db"
		}
	}
	if c.Banking.SimulatedLatency < 0 {
		c.Banking.SimulatedLatency = 0
	}
	for name, n := range c.Chain.Networks {
		if !domain.Network(name).Valid() {
			unknown = append(unknown, name)
			delete(c.Chain.Networks, name)
			continue
		}
		if n.Mode == "" {
			n.Mode = ModeLive
			if n.RPCURL == "" {
				n.Mode = ModeSimulated
			}
		}
		c.Chain.Networks[name] = n
	}
	return unknown
}

// Candidates 配置了的网络覆盖内置候选列表
func (c ChainConfig) Candidates(defaults map[domain.Network][]domain.Candidate) map[domain.Network][]domain.Candidate {
	out := make(map[domain.Network][]domain.Candidate, len(defaults))
	for n, cs := range defaults {
		out[n] = cs
	}
	for name, n := range c.Networks {
		if len(n.Candidates) > 0 {
			out[domain.Network(name)] = n.Candidates
		}
	}
	return out
}
