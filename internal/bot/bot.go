// Package bot holds the reminder bot's conversation logic.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"basegraph.app/reminder/common/logger"
	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/card"
	"basegraph.app/reminder/internal/model"
	"basegraph.app/reminder/internal/reminder"
	"basegraph.app/reminder/internal/store"
)

const (
	UsageHint = "Use 'remind' to schedule a reminder, or use 'help' for more information."

	forwardTimeout = 10 * time.Second
)

// Forwarder hands an accepted card submission to the reminder endpoint.
type Forwarder interface {
	Forward(ctx context.Context, req model.ReminderRequest) error
}

type reminderBot struct {
	refs      store.ConversationReferenceStore
	forwarder Forwarder
}

func New(refs store.ConversationReferenceStore, forwarder Forwarder) botframework.Handler {
	return &reminderBot{refs: refs, forwarder: forwarder}
}

func (b *reminderBot) OnTurn(ctx context.Context, turn *botframework.TurnContext) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "reminder.bot"})
	activity := turn.Activity

	switch activity.Type {
	case botframework.ActivityTypeMessage:
		b.remember(activity)
		return b.onMessage(ctx, turn)
	case botframework.ActivityTypeConversationUpdate:
		if len(activity.MembersAdded) > 0 {
			b.remember(activity)
		}
		return b.onMembersAdded(ctx, turn)
	case botframework.ActivityTypeInstallationUpdate:
		if strings.EqualFold(activity.Action, "add") {
			b.remember(activity)
			_, err := turn.SendActivity(ctx, botframework.NewAttachmentMessage(card.Intro(senderName(activity)).Attachment()))
			return err
		}
		return nil
	case botframework.ActivityTypeInvoke:
		if activity.Name == botframework.InvokeAdaptiveCardAction {
			b.remember(activity)
		}
		b.onInvoke(ctx, turn)
		return nil
	default:
		slog.DebugContext(ctx, "ignoring activity")
		return nil
	}
}

func (b *reminderBot) remember(activity *botframework.Activity) {
	b.refs.Put(activity.ConversationID(), botframework.GetConversationReference(activity))
}

func (b *reminderBot) onMessage(ctx context.Context, turn *botframework.TurnContext) error {
	text := strings.ToLower(turn.Activity.Text)

	switch {
	case strings.Contains(text, "remind"):
		members, err := turn.GetAllMembers(ctx)
		if err != nil {
			return err
		}
		_, err = turn.SendActivity(ctx, botframework.NewAttachmentMessage(card.RemindForm(members).Attachment()))
		return err
	case strings.Contains(text, "help"):
		_, err := turn.SendActivity(ctx, botframework.NewAttachmentMessage(card.Intro(senderName(turn.Activity)).Attachment()))
		return err
	default:
		_, err := turn.SendText(ctx, UsageHint)
		return err
	}
}

// onMembersAdded welcomes everyone who joined except the bot itself.
func (b *reminderBot) onMembersAdded(ctx context.Context, turn *botframework.TurnContext) error {
	activity := turn.Activity
	for _, member := range activity.MembersAdded {
		if activity.Recipient != nil && member.ID == activity.Recipient.ID {
			continue
		}
		name := member.Name
		if name == "" {
			name = senderName(activity)
		}
		if _, err := turn.SendActivity(ctx, botframework.NewAttachmentMessage(card.Intro(name).Attachment())); err != nil {
			return err
		}
	}
	return nil
}

type actionValue struct {
	Action struct {
		Type string          `json:"type"`
		Verb string          `json:"verb"`
		Data json.RawMessage `json:"data"`
	} `json:"action"`
}

// invokeBody is the Universal Actions response body.
type invokeBody struct {
	StatusCode int    `json:"statusCode"`
	Type       string `json:"type,omitempty"`
	Value      any    `json:"value,omitempty"`
}

type errorValue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (b *reminderBot) onInvoke(ctx context.Context, turn *botframework.TurnContext) {
	activity := turn.Activity

	var value actionValue
	if activity.Name != botframework.InvokeAdaptiveCardAction ||
		json.Unmarshal(activity.Value, &value) != nil ||
		value.Action.Verb != card.VerbScheduleReminder {
		slog.WarnContext(ctx, "unsupported invoke",
			"name", activity.Name,
			"verb", value.Action.Verb)
		turn.SetInvokeResponse(&botframework.InvokeResponse{
			Status: http.StatusInternalServerError,
			Body:   invokeBody{StatusCode: http.StatusInternalServerError},
		})
		return
	}

	req, err := reminder.DecodeSubmission(activity.ConversationID(), value.Action.Data)
	if err != nil {
		slog.WarnContext(ctx, "invalid reminder submission", "error", err)
		turn.SetInvokeResponse(&botframework.InvokeResponse{
			Status: http.StatusBadRequest,
			Body: invokeBody{
				StatusCode: http.StatusBadRequest,
				Type:       botframework.ContentTypeError,
				Value:      errorValue{Code: "BadRequest", Message: submissionMessage(err)},
			},
		})
		return
	}

	b.forward(ctx, req)

	turn.SetInvokeResponse(&botframework.InvokeResponse{
		Status: http.StatusOK,
		Body: invokeBody{
			StatusCode: http.StatusOK,
			Type:       botframework.ContentTypeAdaptiveCard,
			Value:      card.Scheduled(req),
		},
	})
}

// forward posts the reminder in the background so the card is answered
// without waiting on it.
func (b *reminderBot) forward(ctx context.Context, req model.ReminderRequest) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
		defer cancel()
		if err := b.forwarder.Forward(ctx, req); err != nil {
			slog.ErrorContext(ctx, "failed to forward reminder", "error", err)
		}
	}()
}

func submissionMessage(err error) string {
	switch {
	case errors.Is(err, reminder.ErrMention):
		return "Select a person to remind."
	case errors.Is(err, reminder.ErrDelaySeconds):
		return "Select when to send the reminder."
	default:
		return "The reminder form could not be read."
	}
}

func senderName(activity *botframework.Activity) string {
	if activity.From == nil {
		return ""
	}
	return activity.From.Name
}
