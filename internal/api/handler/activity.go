package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chandraveer04/token-browser/internal/domain"
	"github.com/chandraveer04/token-browser/pkg/common"
	"github.com/chandraveer04/token-browser/pkg/orm"
	"github.com/chandraveer04/token-browser/pkg/xerr"
)

type Activity struct {
	svc AuditService
}

func NewActivity(svc AuditService) *Activity {
	return &Activity{svc: svc}
}

type activityQuery struct {
	SessionID        string `form:"sessionId"`
	Action           string `form:"action"`
	Method           string `form:"method"`
	MaskedIdentifier string `form:"maskedIdentifier"`
	Environment      string `form:"environment"`
	Status           string `form:"status"`
	StartDate        string `form:"startDate"`
	EndDate          string `form:"endDate"`
	Period           string `form:"period"`
	Page             int    `form:"page"`
	Limit            int    `form:"limit"`
}

func (q activityQuery) filter() (domain.ActivityFilter, error) {
	f := domain.ActivityFilter{
		SessionID:        q.SessionID,
		Action:           q.Action,
		Method:           domain.Method(q.Method),
		MaskedIdentifier: q.MaskedIdentifier,
		Environment:      domain.Environment(q.Environment),
		Status:           domain.Status(q.Status),
	}
	var err error
	if f.Start, err = parseTime(q.StartDate); err != nil {
		return f, err
	}
	if f.End, err = parseTime(q.EndDate); err != nil {
		return f, err
	}
	return f, nil
}

// List GET /api/activities
func (h *Activity) List(c *gin.Context) {
	var q activityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	f, err := q.filter()
	if err != nil {
		common.FailErr(c, err)
		return
	}
	page, size := orm.Normalize(q.Page, q.Limit)
	recs, total, err := h.svc.Query(c.Request.Context(), f, page, size)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, gin.H{
		"activities": recs,
		"pagination": newPagination(total, page, size),
	})
}

// Stats GET /api/activities/stats?period=day|week|month|year
func (h *Activity) Stats(c *gin.Context) {
	var q activityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badParams(c, err)
		return
	}
	f, err := q.filter()
	if err != nil {
		common.FailErr(c, err)
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), f, q.Period)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, st)
}

// Purge DELETE /api/activities?olderThan=30&sessionId=
func (h *Activity) Purge(c *gin.Context) {
	var req domain.RetentionRequest
	if v := c.Query("olderThan"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			common.FailErr(c, xerr.Wrap(err, xerr.RequestParamsError, "olderThan must be a number of days"))
			return
		}
		req.OlderThanDays = &days
	}
	req.SessionID = c.Query("sessionId")

	n, err := h.svc.Purge(c.Request.Context(), req)
	if err != nil {
		common.FailErr(c, err)
		return
	}
	common.Success(c, gin.H{"deletedCount": n})
}
