package chainreader

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/chandraveer04/token-browser/internal/domain"
)

// ListTransfers 发出和收到两个方向并发查询，按哈希去重，区块倒序截断
func (r *Reader) ListTransfers(ctx context.Context, owner, asset string, network domain.Network, lookback uint64) ([]domain.TransferRecord, error) {
	p, err := r.provider(network)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	var tokens []common.Address
	if asset != "" {
		a, err := parseAddress(asset)
		if err != nil {
			return nil, err
		}
		tokens = []common.Address{a}
	}
	if lookback == 0 {
		lookback = r.cfg.Lookback
	}

	head, err := call(ctx, r.cfg.CallTimeout, p.BlockNumber)
	if err != nil {
		return nil, unavailable(network, err)
	}
	var from uint64
	if head > lookback {
		from = head - lookback
	}

	var sent, received []domain.TransferEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sent, err = call(gctx, r.cfg.CallTimeout, func(ctx context.Context) ([]domain.TransferEvent, error) {
			return p.TransferLogs(ctx, domain.TransferQuery{Tokens: tokens, From: &ownerAddr, FromBlock: from, ToBlock: head})
		})
		return err
	})
	g.Go(func() (err error) {
		received, err = call(gctx, r.cfg.CallTimeout, func(ctx context.Context) ([]domain.TransferEvent, error) {
			return p.TransferLogs(ctx, domain.TransferQuery{Tokens: tokens, To: &ownerAddr, FromBlock: from, ToBlock: head})
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, unavailable(network, err)
	}

	events := mergeEvents(sent, received, r.cfg.MaxTransfers)
	metas, times := r.enrich(ctx, p, events)

	out := make([]domain.TransferRecord, 0, len(events))
	for _, ev := range events {
		meta := metas[ev.Token]
		out = append(out, domain.TransferRecord{
			TransactionHash: ev.TxHash,
			TokenAddress:    strings.ToLower(ev.Token.Hex()),
			TokenSymbol:     meta.symbol,
			TokenName:       meta.name,
			From:            strings.ToLower(ev.From.Hex()),
			To:              strings.ToLower(ev.To.Hex()),
			Amount:          ev.Amount.String(),
			Decimals:        meta.decimals,
			BlockNumber:     ev.BlockNumber,
			Network:         network,
			ChainID:         network.ChainIDString(),
			Timestamp:       times[ev.BlockNumber],
		})
	}
	return out, nil
}

// mergeEvents 自己转给自己会在两个方向各出现一次
func mergeEvents(a, b []domain.TransferEvent, limit int) []domain.TransferEvent {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]domain.TransferEvent, 0, len(a)+len(b))
	for _, list := range [][]domain.TransferEvent{a, b} {
		for _, ev := range list {
			if seen[ev.TxHash] {
				continue
			}
			seen[ev.TxHash] = true
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber > out[j].BlockNumber
		}
		return out[i].LogIndex > out[j].LogIndex
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// enrich 只对截断后的结果查元数据和区块时间，单项失败不影响其它
func (r *Reader) enrich(ctx context.Context, p domain.ChainProvider, events []domain.TransferEvent) (map[common.Address]tokenMeta, map[uint64]time.Time) {
	metas := make(map[common.Address]tokenMeta)
	times := make(map[uint64]time.Time)
	var mu sync.Mutex

	hints := make(map[common.Address]domain.Candidate)
	for _, c := range r.cfg.Candidates[p.Network()] {
		if common.IsHexAddress(c.Address) {
			hints[common.HexToAddress(c.Address)] = c
		}
	}

	pendingTok := make(map[common.Address]bool)
	pendingBlk := make(map[uint64]bool)

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for _, ev := range events {
		if !pendingTok[ev.Token] {
			pendingTok[ev.Token] = true
			token := ev.Token
			g.Go(func() error {
				m := r.probeMeta(ctx, p, token, hints[token])
				mu.Lock()
				metas[token] = m
				mu.Unlock()
				return nil
			})
		}
		if !pendingBlk[ev.BlockNumber] {
			pendingBlk[ev.BlockNumber] = true
			n := ev.BlockNumber
			g.Go(func() error {
				ts, err := call(ctx, r.cfg.CallTimeout, func(ctx context.Context) (time.Time, error) { return p.BlockTime(ctx, n) })
				if err != nil {
					return nil
				}
				mu.Lock()
				times[n] = ts
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return metas, times
}
