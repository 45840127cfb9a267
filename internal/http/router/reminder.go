package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/reminder/internal/http/handler"
)

// ReminderRouter sets up reminder routes
// - POST /api/remind schedules a reminder into a known conversation
// - GET /api/remind/schema describes the request body
func ReminderRouter(router *gin.RouterGroup, handler *handler.ReminderHandler) {
	router.POST("", handler.Remind)
	router.GET("/schema", handler.Schema)
}
