package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/reminder/internal/botframework"
)

// ActivityProcessor runs inbound activities through a bot.
type ActivityProcessor interface {
	ProcessActivity(ctx context.Context, authHeader string, activity *botframework.Activity, h botframework.Handler) (*botframework.InvokeResponse, error)
}

type MessagesHandler struct {
	adapter ActivityProcessor
	bot     botframework.Handler
}

func NewMessagesHandler(adapter ActivityProcessor, bot botframework.Handler) *MessagesHandler {
	return &MessagesHandler{adapter: adapter, bot: bot}
}

// Receive handles activities the channel service posts to the bot.
func (h *MessagesHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var activity botframework.Activity
	if err := c.ShouldBindJSON(&activity); err != nil {
		slog.WarnContext(ctx, "invalid activity body", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	resp, err := h.adapter.ProcessActivity(ctx, c.GetHeader("Authorization"), &activity, h.bot)
	switch {
	case errors.Is(err, botframework.ErrUnauthorized):
		slog.WarnContext(ctx, "rejected unauthenticated activity", "error", err, "channel", activity.ChannelID)
		c.Status(http.StatusUnauthorized)
		return
	case errors.Is(err, botframework.ErrInvalidActivity):
		slog.WarnContext(ctx, "rejected invalid activity", "error", err)
		c.Status(http.StatusBadRequest)
		return
	case err != nil:
		slog.ErrorContext(ctx, "failed to process activity", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if resp == nil {
		c.Status(http.StatusOK)
		return
	}
	if resp.Body == nil {
		c.Status(resp.Status)
		return
	}
	c.JSON(resp.Status, resp.Body)
}
