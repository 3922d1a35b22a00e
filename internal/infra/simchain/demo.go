package simchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chandraveer04/token-browser/internal/domain"
)

// DemoTokens 模拟链上预置的代币
var DemoTokens = []struct {
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8
}{
	{common.HexToAddress("0x5FC8d32690cc91D4c39d9d3abcBD16989F875707"), "Mock Tether", "mUSDT", 6},
	{common.HexToAddress("0x0165878A594ca255338adfa4d48449f69242Eb8F"), "Mock Dai", "mDAI", 18},
	{common.HexToAddress("0xa513E6E4b8f2a923D98304ec87F64353C4D5C853"), "Mock Chainlink", "mLINK", 18},
}

// NewDemo 给每个 owner 发一些代币并造几笔转账，head 固定在 1200
func NewDemo(network domain.Network, owners ...common.Address) *Provider {
	p := New(network)
	p.SetHead(1200)
	p.SetAccounts(owners...)

	unit := func(decimals uint8, n int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	}
	sink := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	for _, t := range DemoTokens {
		p.AddToken(t.Address, t.Name, t.Symbol, t.Decimals)
	}
	for i, owner := range owners {
		p.SetNativeBalance(owner, unit(18, 100))
		for j, t := range DemoTokens {
			p.SetTokenBalance(t.Address, owner, unit(t.Decimals, int64(1000*(j+1))))
			p.AddTransfer(domain.TransferEvent{
				Token: t.Address, From: sink, To: owner,
				Amount:      unit(t.Decimals, int64(1000*(j+1)+10)),
				TxHash:      HashFor(fmt.Sprintf("demo-in-%d-%d", i, j)),
				BlockNumber: uint64(300 + 100*j + i),
			})
			p.AddTransfer(domain.TransferEvent{
				Token: t.Address, From: owner, To: sink,
				Amount:      unit(t.Decimals, 10),
				TxHash:      HashFor(fmt.Sprintf("demo-out-%d-%d", i, j)),
				BlockNumber: uint64(900 + 100*j + i),
			})
		}
	}
	return p
}

// DemoCandidates DemoTokens 作为候选列表
func DemoCandidates() []domain.Candidate {
	out := make([]domain.Candidate, 0, len(DemoTokens))
	for _, t := range DemoTokens {
		out = append(out, domain.Candidate{Address: t.Address.Hex(), Name: t.Name, Symbol: t.Symbol})
	}
	return out
}
