package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// Method 银行标识符类型
type Method string

const (
	MethodUPI     Method = "upi"
	MethodAccount Method = "account"
	MethodCard    Method = "card"
)

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodUPI, MethodAccount, MethodCard:
		return m, nil
	}
	return "", xerr.New(xerr.ValidationError, "unsupported method: "+s)
}

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

func ParseEnvironment(s string) (Environment, error) {
	e := Environment(strings.ToLower(strings.TrimSpace(s)))
	switch e {
	case EnvDevelopment, EnvProduction:
		return e, nil
	case "":
		return EnvDevelopment, nil
	}
	return "", xerr.New(xerr.ValidationError, "unsupported environment: "+s)
}

// UnknownUser session 里没有钱包地址时使用
const UnknownUser = "unknown"

// BankingRecord (user, method, maskedIdentifier) 唯一，重复查询原地更新
type BankingRecord struct {
	ID               uint64          `gorm:"primaryKey" json:"-"`
	User             string          `gorm:"column:user_address;size:64;not null;uniqueIndex:uk_banking_user_method_mask,priority:1" json:"user"`
	Method           Method          `gorm:"size:16;not null;uniqueIndex:uk_banking_user_method_mask,priority:2" json:"method"`
	MaskedIdentifier string          `gorm:"size:128;not null;uniqueIndex:uk_banking_user_method_mask,priority:3" json:"maskedIdentifier"`
	Name             string          `gorm:"size:128" json:"name"`
	Balance          decimal.Decimal `gorm:"type:decimal(36,18);default:0" json:"balance"`
	Currency         string          `gorm:"size:8" json:"currency"`
	SessionID        string          `gorm:"size:64;index" json:"sessionId"`
	Environment      Environment     `gorm:"size:16" json:"environment"`
	LastUpdated      time.Time       `gorm:"index" json:"lastUpdated"`

	// PersistFailure 本次请求里没写成功的记录数（银行记录 + 审计）
	PersistFailure int `gorm:"-" json:"-"`
}

func (BankingRecord) TableName() string { return "banking_records" }

// BankBalance 余额提供方返回的原始数据
type BankBalance struct {
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// BalanceProvider 开发环境用模拟实现，生产环境走加密通道
type BalanceProvider interface {
	FetchBalance(ctx context.Context, method Method, identifier string) (*BankBalance, error)
}

type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
}

// RateSource 汇率：1 from = ? to
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type BankingStore interface {
	UpsertBanking(ctx context.Context, rec *BankingRecord) error
	// method 为空表示不限
	ListBanking(ctx context.Context, user string, method Method) ([]BankingRecord, error)
}
