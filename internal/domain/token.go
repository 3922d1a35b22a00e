package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// 元数据探测失败时的兜底值
const (
	FallbackTokenName     = "Unknown Token"
	FallbackTokenSymbol   = "???"
	FallbackTokenDecimals = uint8(18)
)

// TokenRecord (owner, address, network) 唯一，LastUpdated 大的覆盖小的
type TokenRecord struct {
	ID          uint64    `gorm:"primaryKey" json:"-"`
	Owner       string    `gorm:"size:42;not null;uniqueIndex:uk_token_owner_addr_net,priority:1" json:"owner"`
	Address     string    `gorm:"size:42;not null;uniqueIndex:uk_token_owner_addr_net,priority:2" json:"address"`
	Network     Network   `gorm:"size:16;not null;uniqueIndex:uk_token_owner_addr_net,priority:3" json:"network"`
	ChainID     string    `gorm:"size:16" json:"chainId"`
	Name        string    `gorm:"size:128" json:"name"`
	Symbol      string    `gorm:"size:32" json:"symbol"`
	Decimals    uint8     `json:"decimals"`
	Balance     string    `gorm:"size:80" json:"balance"` // 最小单位的十进制整数
	LastUpdated time.Time `gorm:"index" json:"lastUpdated"`
}

func (TokenRecord) TableName() string { return "tokens" }

// AssetKey 合并 live / cache 时的去重键
func (t TokenRecord) AssetKey() string { return t.Address }

// BalanceInt 解析失败返回 0
func (t TokenRecord) BalanceInt() *big.Int {
	b, ok := new(big.Int).SetString(t.Balance, 10)
	if !ok {
		return new(big.Int)
	}
	return b
}

// FormattedBalance 按 decimals 换算成可读数量
func (t TokenRecord) FormattedBalance() decimal.Decimal {
	return FromBaseUnits(t.BalanceInt(), t.Decimals)
}

func FromBaseUnits(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0).Shift(-int32(decimals))
}

// Candidate 待探测的代币合约，Name/Symbol 作为元数据失败时的兜底
type Candidate struct {
	Address string `mapstructure:"address" yaml:"address" json:"address"`
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
	Symbol  string `mapstructure:"symbol" yaml:"symbol" json:"symbol"`
}

// TokenView 对账后的结果；Stale=true 表示节点不可用，全部来自缓存
type TokenView struct {
	Owner          string        `json:"owner"`
	Network        Network       `json:"network"`
	Tokens         []TokenRecord `json:"tokens"`
	Stale          bool          `json:"stale"`
	PersistFailure int           `json:"-"`
}

type NativeBalance struct {
	Owner     string          `json:"owner"`
	Network   Network         `json:"network"`
	Symbol    string          `json:"symbol"`
	Wei       string          `json:"wei"`
	Formatted decimal.Decimal `json:"formatted"`

	// 汇率源报不出价时两者都为空
	FiatValue    *decimal.Decimal `json:"fiatValue,omitempty"`
	FiatCurrency string           `json:"fiatCurrency,omitempty"`
}

// TokenCache 代币缓存
type TokenCache interface {
	UpsertToken(ctx context.Context, rec *TokenRecord) error
	// network 为空表示不限
	QueryTokens(ctx context.Context, owner string, network Network) ([]TokenRecord, error)
}
