package router

import (
	"github.com/gin-gonic/gin"

	"github.com/chandraveer04/token-browser/internal/api/handler"
)

func Banking(api *gin.RouterGroup, h *handler.Banking) {
	banking := api.Group("/banking")
	{
		banking.GET("", h.Records)
		banking.POST("/balance", h.Balance)
		banking.POST("/session", h.Session)
		banking.GET("/convert", h.Convert)
	}
}

func Activities(api *gin.RouterGroup, h *handler.Activity) {
	act := api.Group("/activities")
	{
		act.GET("", h.List)
		act.GET("/stats", h.Stats)
		act.DELETE("", h.Purge)
	}
}
