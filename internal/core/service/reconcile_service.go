package service

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/besteffort"
	"github.com/chandraveer04/token-browser/pkg/logger"
	"github.com/chandraveer04/token-browser/pkg/metrics"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

// 缓存补充转账时取的条数，和链上截断条数一致
const cachedTransferLimit = 20

// ReconcileService 链上结果为准，缓存只补充链上没有的记录；节点不可用时整体回退缓存
type ReconcileService struct {
	reader    domain.ChainReader
	tokens    domain.TokenCache
	transfers domain.TransferCache
	rates     domain.RateSource // 可为 nil
	fiat      string
	now       func() time.Time
}

func NewReconcileService(reader domain.ChainReader, tokens domain.TokenCache, transfers domain.TransferCache) *ReconcileService {
	return &ReconcileService{
		reader:    reader,
		tokens:    tokens,
		transfers: transfers,
		now:       time.Now,
	}
}

// WithFiat 原生币余额附带按 fiat 折算的价值
func (s *ReconcileService) WithFiat(rates domain.RateSource, fiat string) *ReconcileService {
	s.rates = rates
	s.fiat = strings.ToUpper(strings.TrimSpace(fiat))
	return s
}

func checkOwner(owner string, network domain.Network) (string, error) {
	if !network.Valid() {
		return "", xerr.New(xerr.ValidationError, "unsupported network: "+string(network))
	}
	if !common.IsHexAddress(owner) {
		return "", xerr.New(xerr.ValidationError, "invalid address: "+owner)
	}
	return strings.ToLower(owner), nil
}

// TokensFor 某个地址在某个网络上的代币余额
func (s *ReconcileService) TokensFor(ctx context.Context, owner string, network domain.Network) (*domain.TokenView, error) {
	owner, err := checkOwner(owner, network)
	if err != nil {
		return nil, err
	}
	view := &domain.TokenView{Owner: owner, Network: network}

	live, err := s.reader.ListTokenBalances(ctx, owner, network, nil)
	if err != nil {
		if !xerr.IsCode(err, xerr.ChainUnavailable) {
			return nil, err
		}
		logger.Warn(ctx, "chain unavailable, serving cached tokens",
			zap.String("owner", owner), zap.String("network", string(network)), zap.Error(err))
		cached, cerr := s.tokens.QueryTokens(ctx, owner, network)
		if cerr != nil {
			return nil, cerr
		}
		metrics.ReconcileTotal.WithLabelValues("tokens", string(network), "cache").Inc()
		view.Tokens = cached
		view.Stale = true
		return view, nil
	}

	outs := make([]besteffort.Outcome, 0, len(live))
	for i := range live {
		rec := live[i]
		outs = append(outs, besteffort.Do(ctx, "upsert_token", func(ctx context.Context) error {
			return s.tokens.UpsertToken(ctx, &rec)
		}))
	}
	view.PersistFailure = besteffort.Tally(outs...)
	view.Tokens = live

	cached, err := s.tokens.QueryTokens(ctx, owner, network)
	if err != nil {
		logger.Warn(ctx, "query cached tokens failed", zap.String("owner", owner), zap.Error(err))
	}
	seen := make(map[string]bool, len(live))
	for _, t := range live {
		seen[t.AssetKey()] = true
	}
	for _, t := range cached {
		if !seen[t.AssetKey()] {
			view.Tokens = append(view.Tokens, t)
		}
	}

	metrics.ReconcileTotal.WithLabelValues("tokens", string(network), "live").Inc()
	return view, nil
}

// TransfersFor 最近的转账；asset 为空表示所有代币
func (s *ReconcileService) TransfersFor(ctx context.Context, owner, asset string, network domain.Network) (*domain.TransferView, error) {
	owner, err := checkOwner(owner, network)
	if err != nil {
		return nil, err
	}
	if asset != "" && !common.IsHexAddress(asset) {
		return nil, xerr.New(xerr.ValidationError, "invalid token address: "+asset)
	}
	asset = strings.ToLower(asset)
	view := &domain.TransferView{Owner: owner, Asset: asset, Network: network}
	filter := domain.TransferFilter{Address: owner, TokenAddress: asset, Network: network}

	live, err := s.reader.ListTransfers(ctx, owner, asset, network, 0)
	if err != nil {
		if !xerr.IsCode(err, xerr.ChainUnavailable) {
			return nil, err
		}
		logger.Warn(ctx, "chain unavailable, serving cached transfers",
			zap.String("owner", owner), zap.String("network", string(network)), zap.Error(err))
		cached, _, cerr := s.transfers.QueryTransfers(ctx, filter, 1, cachedTransferLimit)
		if cerr != nil {
			return nil, cerr
		}
		metrics.ReconcileTotal.WithLabelValues("transfers", string(network), "cache").Inc()
		view.Transfers = cached
		view.Stale = true
		return view, nil
	}

	outs := make([]besteffort.Outcome, 0, len(live))
	for i := range live {
		rec := live[i]
		outs = append(outs, besteffort.Do(ctx, "upsert_transfer", func(ctx context.Context) error {
			_, err := s.transfers.UpsertTransfer(ctx, &rec)
			return err
		}))
	}
	view.PersistFailure = besteffort.Tally(outs...)
	view.Transfers = live

	cached, _, err := s.transfers.QueryTransfers(ctx, filter, 1, cachedTransferLimit)
	if err != nil {
		logger.Warn(ctx, "query cached transfers failed", zap.String("owner", owner), zap.Error(err))
	}
	seen := make(map[string]bool, len(live))
	for _, t := range live {
		seen[t.AssetKey()] = true
	}
	for _, t := range cached {
		if !seen[t.AssetKey()] {
			view.Transfers = append(view.Transfers, t)
		}
	}

	metrics.ReconcileTotal.WithLabelValues("transfers", string(network), "live").Inc()
	return view, nil
}

// NativeBalance 原生币余额，没有缓存
func (s *ReconcileService) NativeBalance(ctx context.Context, owner string, network domain.Network) (*domain.NativeBalance, error) {
	owner, err := checkOwner(owner, network)
	if err != nil {
		return nil, err
	}
	wei, err := s.reader.GetBalance(ctx, owner, network)
	if err != nil {
		return nil, err
	}
	nb := &domain.NativeBalance{
		Owner:     owner,
		Network:   network,
		Symbol:    network.NativeSymbol(),
		Wei:       wei.String(),
		Formatted: domain.FromBaseUnits(wei, 18),
	}
	s.valueInFiat(ctx, nb)
	return nb, nil
}

// valueInFiat 查不到价格只记日志，余额照常返回
func (s *ReconcileService) valueInFiat(ctx context.Context, nb *domain.NativeBalance) {
	if s.rates == nil || s.fiat == "" {
		return
	}
	rate, err := s.rates.Rate(ctx, nb.Symbol, s.fiat)
	if err != nil {
		logger.Debug(ctx, "native balance not valued",
			zap.String("symbol", nb.Symbol),
			zap.String("fiat", s.fiat),
			zap.Error(err))
		return
	}
	v := nb.Formatted.Mul(rate)
	nb.FiatValue = &v
	nb.FiatCurrency = s.fiat
}

// History 缓存里的转账历史分页
func (s *ReconcileService) History(ctx context.Context, f domain.TransferFilter, page, pageSize int) ([]domain.TransferRecord, int64, error) {
	if f.Network != "" && !f.Network.Valid() {
		return nil, 0, xerr.New(xerr.ValidationError, "unsupported network: "+string(f.Network))
	}
	return s.transfers.QueryTransfers(ctx, f, page, pageSize)
}

// TransferStats period 为 day / week / month / year，其它值不限时间
func (s *ReconcileService) TransferStats(ctx context.Context, address string, network domain.Network, period string) (*domain.TransferStats, error) {
	if network != "" && !network.Valid() {
		return nil, xerr.New(xerr.ValidationError, "unsupported network: "+string(network))
	}
	return s.transfers.TransferStats(ctx, domain.TransferFilter{
		Address: address,
		Network: network,
		Since:   domain.PeriodStart(period, s.now()),
	})
}
