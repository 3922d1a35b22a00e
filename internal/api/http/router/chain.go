package router

import (
	"github.com/gin-gonic/gin"

	"github.com/chandraveer04/token-browser/internal/api/handler"
)

func Tokens(api *gin.RouterGroup, h *handler.Chain) {
	tokens := api.Group("/tokens")
	{
		tokens.GET("", h.Tokens)
		tokens.GET("/native", h.Native)
	}
}

func Transactions(api *gin.RouterGroup, h *handler.Chain) {
	tx := api.Group("/transactions")
	{
		tx.GET("", h.Transfers)
		tx.GET("/history", h.History)
		tx.GET("/stats", h.Stats)
	}
}
