// Package simchain 内存里的模拟链，开发模式和测试使用。
package simchain

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chandraveer04/token-browser/internal/domain"
)

var (
	ErrUnavailable = errors.New("simchain: node unavailable")
	ErrReverted    = errors.New("simchain: execution reverted")
)

// 出块间隔，没有显式设置时间的区块按 genesis + n*blockInterval 计算
const blockInterval = 12 * time.Second

var genesis = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type token struct {
	name, symbol string
	decimals     uint8
	balances     map[common.Address]*big.Int
	broken       map[string]bool // name / symbol / decimals / balanceOf
}

type Provider struct {
	mu        sync.RWMutex
	network   domain.Network
	head      uint64
	down      bool
	latency   time.Duration
	native    map[common.Address]*big.Int
	tokens    map[common.Address]*token
	events    []domain.TransferEvent
	times     map[uint64]time.Time
	accounts  []common.Address
	callCount map[string]int
}

var _ domain.ChainProvider = (*Provider)(nil)

func New(network domain.Network) *Provider {
	return &Provider{
		network:   network,
		native:    map[common.Address]*big.Int{},
		tokens:    map[common.Address]*token{},
		times:     map[uint64]time.Time{},
		callCount: map[string]int{},
	}
}

func (p *Provider) Network() domain.Network { return p.network }

// ---- 造数据 ----

func (p *Provider) SetHead(n uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head = n
}

// SetDown 模拟节点整体不可达
func (p *Provider) SetDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

// SetLatency 每次调用的延迟，受 ctx 控制
func (p *Provider) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

func (p *Provider) SetAccounts(accs ...common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = append([]common.Address(nil), accs...)
}

func (p *Provider) SetNativeBalance(addr common.Address, wei *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.native[addr] = new(big.Int).Set(wei)
}

func (p *Provider) AddToken(addr common.Address, name, symbol string, decimals uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[addr] = &token{
		name: name, symbol: symbol, decimals: decimals,
		balances: map[common.Address]*big.Int{},
		broken:   map[string]bool{},
	}
}

// BreakCall 让某个合约方法 revert
func (p *Provider) BreakCall(addr common.Address, method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tokens[addr]; ok {
		t.broken[method] = true
	}
}

func (p *Provider) SetTokenBalance(tokenAddr, owner common.Address, amount *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tokens[tokenAddr]; ok {
		t.balances[owner] = new(big.Int).Set(amount)
	}
}

func (p *Provider) AddTransfer(ev domain.TransferEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	if ev.BlockNumber > p.head {
		p.head = ev.BlockNumber
	}
}

func (p *Provider) SetBlockTime(n uint64, ts time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.times[n] = ts
}

// Calls 某个方法被调用的次数
func (p *Provider) Calls(method string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.callCount[method]
}

// ---- ChainProvider ----

func (p *Provider) enter(ctx context.Context, method string) error {
	p.mu.Lock()
	p.callCount[method]++
	down, latency := p.down, p.latency
	p.mu.Unlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if down {
		return ErrUnavailable
	}
	return nil
}

func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	if err := p.enter(ctx, "block_number"); err != nil {
		return 0, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.head, nil
}

func (p *Provider) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := p.enter(ctx, "balance"); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.native[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (p *Provider) CodeAt(ctx context.Context, contract common.Address) ([]byte, error) {
	if err := p.enter(ctx, "code"); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.tokens[contract]; ok {
		return []byte{0x60, 0x80, 0x60, 0x40}, nil
	}
	return nil, nil
}

func (p *Provider) lookup(ctx context.Context, addr common.Address, method string) (*token, error) {
	if err := p.enter(ctx, method); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tokens[addr]
	if !ok || t.broken[method] {
		return nil, ErrReverted
	}
	return t, nil
}

func (p *Provider) TokenName(ctx context.Context, addr common.Address) (string, error) {
	t, err := p.lookup(ctx, addr, "name")
	if err != nil {
		return "", err
	}
	return t.name, nil
}

func (p *Provider) TokenSymbol(ctx context.Context, addr common.Address) (string, error) {
	t, err := p.lookup(ctx, addr, "symbol")
	if err != nil {
		return "", err
	}
	return t.symbol, nil
}

func (p *Provider) TokenDecimals(ctx context.Context, addr common.Address) (uint8, error) {
	t, err := p.lookup(ctx, addr, "decimals")
	if err != nil {
		return 0, err
	}
	return t.decimals, nil
}

func (p *Provider) TokenBalance(ctx context.Context, addr, owner common.Address) (*big.Int, error) {
	t, err := p.lookup(ctx, addr, "balanceOf")
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := t.balances[owner]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (p *Provider) TransferLogs(ctx context.Context, q domain.TransferQuery) ([]domain.TransferEvent, error) {
	if err := p.enter(ctx, "filter_logs"); err != nil {
		return nil, err
	}
	tokens := make(map[common.Address]bool, len(q.Tokens))
	for _, t := range q.Tokens {
		tokens[t] = true
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.TransferEvent, 0)
	for _, ev := range p.events {
		if ev.BlockNumber < q.FromBlock || ev.BlockNumber > q.ToBlock {
			continue
		}
		if len(tokens) > 0 && !tokens[ev.Token] {
			continue
		}
		if q.From != nil && ev.From != *q.From {
			continue
		}
		if q.To != nil && ev.To != *q.To {
			continue
		}
		ev.Amount = new(big.Int).Set(ev.Amount)
		out = append(out, ev)
	}
	// 节点按区块正序返回
	sort.SliceStable(out, func(i, j int) bool { return out[i].BlockNumber < out[j].BlockNumber })
	return out, nil
}

func (p *Provider) BlockTime(ctx context.Context, n uint64) (time.Time, error) {
	if err := p.enter(ctx, "header"); err != nil {
		return time.Time{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n > p.head {
		return time.Time{}, errors.New("simchain: block not found")
	}
	if ts, ok := p.times[n]; ok {
		return ts, nil
	}
	return genesis.Add(time.Duration(n) * blockInterval), nil
}

func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	if err := p.enter(ctx, "accounts"); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]common.Address(nil), p.accounts...), nil
}

// HashFor 生成确定的假交易哈希
func HashFor(seed string) string {
	return common.BytesToHash([]byte(strings.ToLower(seed))).Hex()
}
