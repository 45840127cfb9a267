package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/reminder/common/logger"
	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/http/dto"
	"basegraph.app/reminder/internal/model"
	"basegraph.app/reminder/internal/reminder"
	"basegraph.app/reminder/internal/store"
)

const remindAccepted = "<html><body><h1>Proactive messages have been sent.</h1></body></html>"

const maxRemindBody = 64 << 10

// ReminderScheduler starts delivery of a reminder without waiting for it.
type ReminderScheduler interface {
	Schedule(ctx context.Context, ref botframework.ConversationReference, req model.ReminderRequest) int64
}

type ReminderHandler struct {
	refs      store.ConversationReferenceStore
	scheduler ReminderScheduler
}

func NewReminderHandler(refs store.ConversationReferenceStore, scheduler ReminderScheduler) *ReminderHandler {
	return &ReminderHandler{refs: refs, scheduler: scheduler}
}

// Remind accepts a reminder for a known conversation. Rejections carry no
// body. The response does not wait for, or report on, delivery.
func (h *ReminderHandler) Remind(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRemindBody))
	if err != nil {
		slog.WarnContext(ctx, "failed to read reminder body", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	req, err := reminder.Decode(body)
	if err != nil {
		slog.WarnContext(ctx, "invalid reminder request", "error", err, "body", logger.Truncate(string(body), 256))
		c.Status(http.StatusBadRequest)
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ConversationID: logger.Ptr(req.ConversationID)})
	ref, ok := h.refs.Get(req.ConversationID)
	if !ok {
		slog.WarnContext(ctx, "reminder for unknown conversation")
		c.Status(http.StatusBadRequest)
		return
	}

	reminderID := h.scheduler.Schedule(ctx, ref, req)
	slog.InfoContext(ctx, "reminder accepted", "reminder_id", reminderID, "delay_seconds", req.DelaySeconds)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(remindAccepted))
}

// Schema publishes the JSON schema of the reminder body.
func (h *ReminderHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, dto.RemindSchema())
}
