package botframework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"basegraph.app/reminder/common/id"
	"basegraph.app/reminder/common/logger"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidActivity = errors.New("invalid activity")
)

// Connector is the outbound Bot Framework REST surface the adapter needs.
type Connector interface {
	SendToConversation(ctx context.Context, serviceURL, conversationID string, activity *Activity) (*ResourceResponse, error)
	ReplyToActivity(ctx context.Context, serviceURL, conversationID, activityID string, activity *Activity) (*ResourceResponse, error)
	GetPagedMembers(ctx context.Context, serviceURL, conversationID string, pageSize int, continuationToken string) (*PagedMembersResult, error)
}

// Authenticator validates the bearer token of an inbound activity.
type Authenticator interface {
	Authenticate(ctx context.Context, authHeader string, activity *Activity) error
}

// Handler runs the bot logic for a turn.
type Handler interface {
	OnTurn(ctx context.Context, turn *TurnContext) error
}

// TurnFunc adapts a function to Handler.
type TurnFunc func(ctx context.Context, turn *TurnContext) error

func (f TurnFunc) OnTurn(ctx context.Context, turn *TurnContext) error {
	return f(ctx, turn)
}

// TurnErrorHandler is called with any error a handler returns. The error
// is not propagated further.
type TurnErrorHandler func(ctx context.Context, turn *TurnContext, err error)

type Adapter struct {
	connector   Connector
	auth        Authenticator
	onTurnError TurnErrorHandler
}

type AdapterOption func(*Adapter)

func WithTurnErrorHandler(h TurnErrorHandler) AdapterOption {
	return func(a *Adapter) {
		a.onTurnError = h
	}
}

// NewAdapter builds an adapter. A nil Authenticator accepts every request,
// which is what the emulator expects when the bot has no app id.
func NewAdapter(connector Connector, auth Authenticator, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		connector: connector,
		auth:      auth,
		onTurnError: func(ctx context.Context, _ *TurnContext, err error) {
			slog.ErrorContext(ctx, "unhandled turn error", "error", err)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessActivity authenticates and runs one inbound activity. For invoke
// activities the returned InvokeResponse must be written back to the caller.
func (a *Adapter) ProcessActivity(ctx context.Context, authHeader string, activity *Activity, h Handler) (*InvokeResponse, error) {
	if activity == nil || activity.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidActivity)
	}

	if a.auth != nil {
		if err := a.auth.Authenticate(ctx, authHeader, activity); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(activity.ConversationID()),
		ActivityID:     logger.Ptr(activity.ID),
		ActivityType:   logger.Ptr(activity.Type),
		Component:      "reminder.botframework.adapter",
	})

	turn := newTurnContext(a, activity)
	if err := runTurnSafe(ctx, turn, h); err != nil {
		a.onTurnError(ctx, turn, err)
	}

	if activity.Type == ActivityTypeInvoke {
		if resp := turn.InvokeResponse(); resp != nil {
			return resp, nil
		}
		return &InvokeResponse{Status: http.StatusNotImplemented}, nil
	}
	return nil, nil
}

// ContinueConversation runs fn in a turn addressed to a stored conversation.
// Errors from fn are returned to the caller, not to the turn error handler.
func (a *Adapter) ContinueConversation(ctx context.Context, ref ConversationReference, fn TurnFunc) error {
	if ref.Conversation == nil || ref.ServiceURL == "" {
		return fmt.Errorf("%w: conversation reference has no conversation or service url", ErrInvalidActivity)
	}
	activity := ref.ApplyTo(&Activity{
		Type: ActivityTypeEvent,
		Name: "ContinueConversation",
	}, true)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConversationID: logger.Ptr(ref.ConversationID()),
		Component:      "reminder.botframework.adapter",
	})
	return runTurnSafe(ctx, newTurnContext(a, activity), fn)
}

func (a *Adapter) send(ctx context.Context, activity *Activity) (*ResourceResponse, error) {
	conversationID := activity.ConversationID()
	if conversationID == "" || activity.ServiceURL == "" {
		return nil, fmt.Errorf("%w: outgoing activity is not addressed", ErrInvalidActivity)
	}
	if activity.ID == "" {
		activity.ID = id.NewActivityID()
	}

	if activity.ReplyToID != "" {
		return a.connector.ReplyToActivity(ctx, activity.ServiceURL, conversationID, activity.ReplyToID, activity)
	}
	return a.connector.SendToConversation(ctx, activity.ServiceURL, conversationID, activity)
}

func runTurnSafe(ctx context.Context, turn *TurnContext, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in turn", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.OnTurn(ctx, turn)
}
