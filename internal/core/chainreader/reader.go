// Package chainreader 在 ChainProvider 之上做 ERC-20 余额与转账查询：
// 并发探测、单项失败隔离、元数据兜底，节点不可用统一报 ChainUnavailable。
package chainreader

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

type Config struct {
	Candidates   map[domain.Network][]domain.Candidate
	Lookback     uint64        // 往回扫的区块数
	MaxTransfers int           // 返回的转账条数上限
	Concurrency  int           // 单次请求内的并发探测数
	CallTimeout  time.Duration // 单次 RPC 超时
	DevAccounts  int           // development 网络取前几个节点账户当候选
}

func (c *Config) withDefaults() {
	if c.Lookback == 0 {
		c.Lookback = 1000
	}
	if c.MaxTransfers <= 0 {
		c.MaxTransfers = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.DevAccounts <= 0 {
		c.DevAccounts = 5
	}
	if c.Candidates == nil {
		c.Candidates = DefaultCandidates()
	}
}

type Reader struct {
	providers map[domain.Network]domain.ChainProvider
	cfg       Config
}

var _ domain.ChainReader = (*Reader)(nil)

func New(providers map[domain.Network]domain.ChainProvider, cfg Config) *Reader {
	cfg.withDefaults()
	return &Reader{providers: providers, cfg: cfg}
}

func (r *Reader) provider(network domain.Network) (domain.ChainProvider, error) {
	if !network.Valid() {
		return nil, xerr.New(xerr.ValidationError, "unsupported network: "+string(network))
	}
	p, ok := r.providers[network]
	if !ok || p == nil {
		return nil, xerr.New(xerr.ChainUnavailable, "no provider configured for "+string(network))
	}
	return p, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, xerr.New(xerr.ValidationError, "invalid address: "+s)
	}
	return common.HexToAddress(s), nil
}

// unavailable 超时、节点不可达、熔断打开都归为 ChainUnavailable
func unavailable(network domain.Network, err error) error {
	if err == nil {
		return nil
	}
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return err
	}
	return xerr.Wrap(err, xerr.ChainUnavailable, "chain "+string(network)+" unavailable")
}

// call 单次 RPC 超时
func call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(cctx)
}

func (r *Reader) GetBalance(ctx context.Context, address string, network domain.Network) (*big.Int, error) {
	p, err := r.provider(network)
	if err != nil {
		return nil, err
	}
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	bal, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) (*big.Int, error) {
		return p.BalanceAt(ctx, addr)
	})
	if err != nil {
		return nil, unavailable(network, err)
	}
	return bal, nil
}

type tokenMeta struct {
	name     string
	symbol   string
	decimals uint8
}

// probeMeta 三个字段各自兜底
func (r *Reader) probeMeta(ctx context.Context, p domain.ChainProvider, token common.Address, hint domain.Candidate) tokenMeta {
	meta := tokenMeta{name: hint.Name, symbol: hint.Symbol, decimals: domain.FallbackTokenDecimals}
	if meta.name == "" {
		meta.name = domain.FallbackTokenName
	}
	if meta.symbol == "" {
		meta.symbol = domain.FallbackTokenSymbol
	}

	if v, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) (string, error) { return p.TokenName(ctx, token) }); err == nil && v != "" {
		meta.name = v
	}
	if v, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) (string, error) { return p.TokenSymbol(ctx, token) }); err == nil && v != "" {
		meta.symbol = v
	}
	if v, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) (uint8, error) { return p.TokenDecimals(ctx, token) }); err == nil {
		meta.decimals = v
	}
	return meta
}

// candidatesFor 显式传入优先，其次配置，development 最后取节点账户
func (r *Reader) candidatesFor(ctx context.Context, p domain.ChainProvider, network domain.Network, given []domain.Candidate) []domain.Candidate {
	if len(given) > 0 {
		return given
	}
	if c := r.cfg.Candidates[network]; len(c) > 0 {
		return c
	}
	if network != domain.NetworkDevelopment {
		return nil
	}
	accs, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) ([]common.Address, error) { return p.Accounts(ctx) })
	if err != nil {
		logger.Warn(ctx, "eth_accounts failed", zap.Error(err))
		return nil
	}
	if len(accs) > r.cfg.DevAccounts {
		accs = accs[:r.cfg.DevAccounts]
	}
	out := make([]domain.Candidate, 0, len(accs))
	for _, a := range accs {
		out = append(out, domain.Candidate{Address: a.Hex()})
	}
	return out
}

func (r *Reader) ListTokenBalances(ctx context.Context, owner string, network domain.Network, candidates []domain.Candidate) ([]domain.TokenRecord, error) {
	p, err := r.provider(network)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	// 先探活，节点不通直接回退缓存
	if _, err := call(ctx, r.cfg.CallTimeout, p.BlockNumber); err != nil {
		return nil, unavailable(network, err)
	}

	cands := r.candidatesFor(ctx, p, network, candidates)
	results := make([]*domain.TokenRecord, len(cands))
	var (
		mu       sync.Mutex
		rpcFails int
	)

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, cand := range cands {
		g.Go(func() error {
			rec, rpcErr := r.probeToken(ctx, p, network, ownerAddr, cand)
			if rpcErr != nil {
				mu.Lock()
				rpcFails++
				mu.Unlock()
				logger.Debug(ctx, "token probe failed", zap.String("token", cand.Address), zap.Error(rpcErr))
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, unavailable(network, err)
	}
	if len(cands) > 0 && rpcFails == len(cands) {
		return nil, xerr.New(xerr.ChainUnavailable, "all token probes failed on "+string(network))
	}

	out := make([]domain.TokenRecord, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// probeToken 返回 (nil, nil) 表示没有余额；只有节点层面的错误才返回 error
func (r *Reader) probeToken(ctx context.Context, p domain.ChainProvider, network domain.Network, owner common.Address, cand domain.Candidate) (*domain.TokenRecord, error) {
	if !common.IsHexAddress(cand.Address) {
		return nil, nil
	}
	token := common.HexToAddress(cand.Address)

	code, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) ([]byte, error) { return p.CodeAt(ctx, token) })
	if err != nil {
		return nil, err
	}
	// 不是合约（比如 Ganache 的普通账户）
	if len(code) == 0 {
		return nil, nil
	}

	bal, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) (*big.Int, error) { return p.TokenBalance(ctx, token, owner) })
	if err != nil || bal == nil || bal.Sign() == 0 {
		return nil, nil
	}

	meta := r.probeMeta(ctx, p, token, cand)
	return &domain.TokenRecord{
		Owner:       strings.ToLower(owner.Hex()),
		Address:     strings.ToLower(token.Hex()),
		Network:     network,
		ChainID:     network.ChainIDString(),
		Name:        meta.name,
		Symbol:      meta.symbol,
		Decimals:    meta.decimals,
		Balance:     bal.String(),
		LastUpdated: time.Now().UTC(),
	}, nil
}
