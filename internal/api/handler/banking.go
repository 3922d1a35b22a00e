package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/common"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

type Banking struct {
	svc BankingService
}

func NewBanking(svc BankingService) *Banking {
	return &Banking{svc: svc}
}

type balanceReq struct {
	Method      string `json:"method" binding:"required"`
	Identifier  string `json:"identifier" binding:"required"`
	Environment string `json:"environment"`
}

// Balance POST /api/banking/balance
func (h *Banking) Balance(c *gin.Context) {
	var req balanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, err)
		return
	}
	env, err := domain.ParseEnvironment(req.Environment)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	// 未知 method 原样交给 service，按校验失败处理并记审计
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		method = domain.Method(req.Method)
	}
	rec, err := h.svc.FetchBalance(c.Request.Context(), sessionFrom(c), method, req.Identifier, env)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, rec)
}

type recordsQuery struct {
	User   string `form:"user"`
	Method string `form:"method"`
}

// Records GET /api/banking?user=&method=
func (h *Banking) Records(c *gin.Context) {
	var q recordsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	var method domain.Method
	if q.Method != "" {
		m, err := domain.ParseMethod(q.Method)
		if err != nil {
			common.FailErr(c, err)
			return
		}
		method = m
	}
	user := q.User
	if user == "" {
		user = sessionFrom(c).User
	}
	recs, err := h.svc.RecordsFor(c.Request.Context(), user, method)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, recs)
}

// Session POST /api/banking/session
func (h *Banking) Session(c *gin.Context) {
	common.Success(c, gin.H{"sessionId": h.svc.GenerateSessionToken()})
}

type convertQuery struct {
	Amount string `form:"amount" binding:"required"`
	From   string `form:"from" binding:"required"`
	To     string `form:"to" binding:"required"`
}

// Convert GET /api/banking/convert?amount=&from=&to=
func (h *Banking) Convert(c *gin.Context) {
	var q convertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	amount, err := decimal.NewFromString(q.Amount)
	if err != nil {
		common.FailErr(c, xerr.Wrap(err, xerr.RequestParamsError, "invalid amount"))
		return
	}
	conv, err := h.svc.ConvertCurrency(c.Request.Context(), amount, q.From, q.To)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, conv)
}
