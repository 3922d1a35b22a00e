package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/metrics"
	"github.com/chandraveer04/token-browser/pkg/ratelimit"
)

// Provider JSON-RPC 节点（Ganache / 公共 RPC），每次调用都经过该网络的熔断器
type Provider struct {
	client   *ethclient.Client
	rpc      *rpc.Client
	network  domain.Network
	breaker  *ratelimit.Manager
	// 公共 RPC 有频率限制，按网络排队
	throttle *ratelimit.Store
}

var _ domain.ChainProvider = (*Provider)(nil)

// Dial 拨号并校验 chainId 与网络一致
func Dial(ctx context.Context, network domain.Network, url string, breaker *ratelimit.Manager) (*Provider, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network, err)
	}
	p := &Provider{
		client:  ethclient.NewClient(rc),
		rpc:     rc,
		network: network,
		breaker: breaker,
	}

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		// 节点暂时不可达不阻塞启动，请求时由熔断器和超时兜底
		logger.Warn(ctx, "chain id probe failed", zap.String("network", string(network)), zap.Error(err))
		return p, nil
	}
	if want := network.ChainID(); chainID.Int64() != want {
		rc.Close()
		return nil, fmt.Errorf("network %s expects chain id %d, node reports %s", network, want, chainID)
	}
	return p, nil
}

func (p *Provider) Close() { p.rpc.Close() }

// WithThrottle 出站节流，nil 表示不限
func (p *Provider) WithThrottle(s *ratelimit.Store) *Provider {
	p.throttle = s
	return p
}

func (p *Provider) Network() domain.Network { return p.network }

// BreakerName 熔断器按网络隔离
func BreakerName(n domain.Network) string { return "chain:" + string(n) }

// IsNodeHealthy 节点返回了 JSON-RPC 错误（比如 execution reverted）说明节点本身是通的
func IsNodeHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr)
}

func (p *Provider) do(ctx context.Context, call string, fn func(ctx context.Context) error) error {
	start := time.Now()
	if p.throttle != nil {
		if err := p.throttle.Wait(ctx, BreakerName(p.network)); err != nil {
			metrics.ChainCallDuration.WithLabelValues(string(p.network), call, "throttled").Observe(time.Since(start).Seconds())
			return err
		}
	}
	var err error
	if p.breaker != nil {
		err = p.breaker.Do(BreakerName(p.network), func() error { return fn(ctx) })
	} else {
		err = fn(ctx)
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ChainCallDuration.WithLabelValues(string(p.network), call, status).Observe(time.Since(start).Seconds())
	return err
}

func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := p.do(ctx, "block_number", func(ctx context.Context) (err error) {
		n, err = p.client.BlockNumber(ctx)
		return err
	})
	return n, err
}

func (p *Provider) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	var bal *big.Int
	err := p.do(ctx, "balance", func(ctx context.Context) (err error) {
		bal, err = p.client.BalanceAt(ctx, account, nil)
		return err
	})
	return bal, err
}

func (p *Provider) CodeAt(ctx context.Context, contract common.Address) ([]byte, error) {
	var code []byte
	err := p.do(ctx, "code", func(ctx context.Context) (err error) {
		code, err = p.client.CodeAt(ctx, contract, nil)
		return err
	})
	return code, err
}

func (p *Provider) callERC20(ctx context.Context, token common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = p.do(ctx, method, func(ctx context.Context) (err error) {
		out, err = p.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		return err
	})
	return out, err
}

func (p *Provider) TokenName(ctx context.Context, token common.Address) (string, error) {
	out, err := p.callERC20(ctx, token, "name")
	if err != nil {
		return "", err
	}
	return decodeString("name", out)
}

func (p *Provider) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	out, err := p.callERC20(ctx, token, "symbol")
	if err != nil {
		return "", err
	}
	return decodeString("symbol", out)
}

func (p *Provider) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := p.callERC20(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	return decodeUint8("decimals", out)
}

func (p *Provider) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := p.callERC20(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return decodeBigInt("balanceOf", out)
}

// TransferLogs Topics[1] 是 from，Topics[2] 是 to
func (p *Provider) TransferLogs(ctx context.Context, q domain.TransferQuery) ([]domain.TransferEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(q.FromBlock),
		ToBlock:   new(big.Int).SetUint64(q.ToBlock),
		Addresses: q.Tokens,
		Topics:    [][]common.Hash{{TransferTopic}, topicOf(q.From), topicOf(q.To)},
	}

	var events []domain.TransferEvent
	err := p.do(ctx, "filter_logs", func(ctx context.Context) error {
		logs, err := p.client.FilterLogs(ctx, query)
		if err != nil {
			return err
		}
		events = make([]domain.TransferEvent, 0, len(logs))
		for _, l := range logs {
			if ev, ok := decodeTransfer(l); ok {
				events = append(events, ev)
			}
		}
		return nil
	})
	return events, err
}

func topicOf(addr *common.Address) []common.Hash {
	if addr == nil {
		return nil
	}
	return []common.Hash{common.BytesToHash(addr.Bytes())}
}

func (p *Provider) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	var ts time.Time
	err := p.do(ctx, "header", func(ctx context.Context) error {
		h, err := p.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return err
		}
		ts = time.Unix(int64(h.Time), 0).UTC()
		return nil
	})
	return ts, err
}

// Accounts 公共节点一般返回空数组
func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accs []common.Address
	err := p.do(ctx, "accounts", func(ctx context.Context) error {
		return p.rpc.CallContext(ctx, &accs, "eth_accounts")
	})
	return accs, err
}
