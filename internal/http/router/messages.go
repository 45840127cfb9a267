package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/reminder/internal/http/handler"
)

func MessagesRouter(router *gin.RouterGroup, handler *handler.MessagesHandler) {
	router.POST("", handler.Receive)
}
