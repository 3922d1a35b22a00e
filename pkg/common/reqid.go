package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chandraveer04/token-browser/pkg/logger"
)

const (
	HeaderRequestID = "X-Request-Id"
	CtxKeyRequestID = logger.RequestIdKey
)

func NewRequestID() string { return uuid.NewString() }

// 获取 request id
func RequestIDFromGin(c *gin.Context) string {
	if v, ok := c.Get(CtxKeyRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
