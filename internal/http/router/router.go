package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/http/dto"
	"basegraph.app/reminder/internal/http/handler"
	"basegraph.app/reminder/internal/store"
)

type RouterConfig struct {
	Adapter   handler.ActivityProcessor
	Bot       botframework.Handler
	Refs      store.ConversationReferenceStore
	Scheduler handler.ReminderScheduler
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Conversations: cfg.Refs.Len()})
	})

	api := router.Group("/api")
	{
		messagesHandler := handler.NewMessagesHandler(cfg.Adapter, cfg.Bot)
		MessagesRouter(api.Group("/messages"), messagesHandler)

		reminderHandler := handler.NewReminderHandler(cfg.Refs, cfg.Scheduler)
		ReminderRouter(api.Group("/remind"), reminderHandler)
	}
}
