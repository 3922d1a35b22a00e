package domain

import (
	"context"
	"time"
)

// TransferRecord 以 TransactionHash 幂等写入
type TransferRecord struct {
	ID              uint64    `gorm:"primaryKey" json:"-"`
	TransactionHash string    `gorm:"size:66;not null;uniqueIndex" json:"transactionHash"`
	TokenAddress    string    `gorm:"size:42;index" json:"tokenAddress"`
	TokenSymbol     string    `gorm:"size:32" json:"tokenSymbol"`
	TokenName       string    `gorm:"size:128" json:"tokenName"`
	From            string    `gorm:"column:from_address;size:42;index" json:"from"`
	To              string    `gorm:"column:to_address;size:42;index" json:"to"`
	Amount          string    `gorm:"size:80" json:"amount"` // 最小单位
	Decimals        uint8     `json:"decimals"`
	BlockNumber     uint64    `gorm:"index" json:"blockNumber"`
	Network         Network   `gorm:"size:16;index" json:"network"`
	ChainID         string    `gorm:"size:16" json:"chainId"`
	Timestamp       time.Time `json:"timestamp"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (TransferRecord) TableName() string { return "transfers" }

func (t TransferRecord) AssetKey() string { return t.TransactionHash }

// TransferFilter 空字段表示不过滤；Address 匹配 from 或 to
type TransferFilter struct {
	Address      string
	TokenAddress string
	Network      Network
	Since        *time.Time
}

type TransferStats struct {
	Sent         int64 `json:"sent"`
	Received     int64 `json:"received"`
	Total        int64 `json:"total"`
	UniqueTokens int64 `json:"uniqueTokensCount"`
}

type TransferView struct {
	Owner          string           `json:"owner"`
	Asset          string           `json:"asset,omitempty"`
	Network        Network          `json:"network"`
	Transfers      []TransferRecord `json:"transfers"`
	Stale          bool             `json:"stale"`
	PersistFailure int              `json:"-"`
}

// TransferCache 转账缓存
type TransferCache interface {
	// inserted=false 表示哈希已存在，原记录不变
	UpsertTransfer(ctx context.Context, rec *TransferRecord) (inserted bool, err error)
	QueryTransfers(ctx context.Context, f TransferFilter, page, pageSize int) ([]TransferRecord, int64, error)
	TransferStats(ctx context.Context, f TransferFilter) (*TransferStats, error)
}
