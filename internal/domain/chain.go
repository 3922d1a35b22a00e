package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransferQuery From/To 为 nil 表示不限；Tokens 为空表示任意合约
type TransferQuery struct {
	Tokens    []common.Address
	From      *common.Address
	To        *common.Address
	FromBlock uint64
	ToBlock   uint64
}

// TransferEvent ERC-20 Transfer 日志解码结果
type TransferEvent struct {
	Token       common.Address
	From        common.Address
	To          common.Address
	Amount      *big.Int
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
}

// ChainProvider 单条链的最小读取能力，live 走 JSON-RPC，simulated 在内存里
type ChainProvider interface {
	Network() Network
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	CodeAt(ctx context.Context, contract common.Address) ([]byte, error)

	TokenName(ctx context.Context, token common.Address) (string, error)
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	TransferLogs(ctx context.Context, q TransferQuery) ([]TransferEvent, error)
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
	// Accounts eth_accounts，只有本地节点会返回
	Accounts(ctx context.Context) ([]common.Address, error)
}

// ChainReader 链上只读查询
type ChainReader interface {
	GetBalance(ctx context.Context, address string, network Network) (*big.Int, error)
	// candidates 为空时使用该网络配置的候选列表
	ListTokenBalances(ctx context.Context, owner string, network Network, candidates []Candidate) ([]TokenRecord, error)
	// asset 为空表示任意代币；lookback 为 0 用默认值
	ListTransfers(ctx context.Context, owner, asset string, network Network, lookback uint64) ([]TransferRecord, error)
}
