package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/common"
	"github.com/chandraveer04/token-browser/pkg/orm"
)

type Chain struct {
	svc ChainService
}

func NewChain(svc ChainService) *Chain {
	return &Chain{svc: svc}
}

type ownerQuery struct {
	Owner   string `form:"owner" binding:"required"`
	Network string `form:"network" binding:"required"`
	Token   string `form:"token"`
}

// Tokens GET /api/tokens?owner=&network=
func (h *Chain) Tokens(c *gin.Context) {
	var q ownerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	network, err := domain.ParseNetwork(q.Network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	view, err := h.svc.TokensFor(c.Request.Context(), q.Owner, network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, view)
}

// Native GET /api/tokens/native?owner=&network=
func (h *Chain) Native(c *gin.Context) {
	var q ownerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	network, err := domain.ParseNetwork(q.Network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	nb, err := h.svc.NativeBalance(c.Request.Context(), q.Owner, network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, nb)
}

// Transfers GET /api/transactions?owner=&network=&token=
func (h *Chain) Transfers(c *gin.Context) {
	var q ownerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	network, err := domain.ParseNetwork(q.Network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	view, err := h.svc.TransfersFor(c.Request.Context(), q.Owner, q.Token, network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, view)
}

type historyQuery struct {
	Address string `form:"address"`
	Token   string `form:"token"`
	Network string `form:"network"`
	Page    int    `form:"page"`
	Limit   int    `form:"limit"`
}

// History GET /api/transactions/history 只查缓存
func (h *Chain) History(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	network, err := optionalNetwork(q.Network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	page, size := orm.Normalize(q.Page, q.Limit)
	recs, total, err := h.svc.History(c.Request.Context(), domain.TransferFilter{
		Address:      q.Address,
		TokenAddress: q.Token,
		Network:      network,
	}, page, size)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, gin.H{
		"transactions": recs,
		"pagination":   newPagination(total, page, size),
	})
}

type statsQuery struct {
	Address string `form:"address" binding:"required"`
	Network string `form:"network"`
	Period  string `form:"period"`
}

// Stats GET /api/transactions/stats
func (h *Chain) Stats(c *gin.Context) {
	var q statsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	network, err := optionalNetwork(q.Network)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	st, err := h.svc.TransferStats(c.Request.Context(), q.Address, network, q.Period)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, st)
}
