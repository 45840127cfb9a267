package botframework

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// TurnContext is the unit of work for one inbound activity, or for one
// continuation of a stored conversation.
type TurnContext struct {
	Activity *Activity

	adapter *Adapter

	mu             sync.Mutex
	invokeResponse *InvokeResponse
}

func newTurnContext(adapter *Adapter, activity *Activity) *TurnContext {
	return &TurnContext{Activity: activity, adapter: adapter}
}

// SendActivity addresses the activity back to the turn's conversation and
// sends it.
func (t *TurnContext) SendActivity(ctx context.Context, activity *Activity) (*ResourceResponse, error) {
	if activity.Type == "" {
		activity.Type = ActivityTypeMessage
	}

	if activity.Type == ActivityTypeInvokeResponse {
		return nil, fmt.Errorf("invoke responses are set with SetInvokeResponse")
	}

	GetConversationReference(t.Activity).ApplyTo(activity, false)
	return t.adapter.send(ctx, activity)
}

// SendText sends a plain text message.
func (t *TurnContext) SendText(ctx context.Context, text string) (*ResourceResponse, error) {
	return t.SendActivity(ctx, NewMessage(text))
}

// SendTraceActivity sends a trace activity. Trace activities are only
// rendered by the emulator, so other channels are skipped.
func (t *TurnContext) SendTraceActivity(ctx context.Context, name string, value any, valueType, label string) error {
	if t.Activity.ChannelID != ChannelEmulator {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal trace value: %w", err)
	}
	_, err = t.SendActivity(ctx, &Activity{
		Type:      ActivityTypeTrace,
		Name:      name,
		Label:     label,
		ValueType: valueType,
		Value:     raw,
	})
	return err
}

// SetInvokeResponse records the synchronous response for an invoke turn.
func (t *TurnContext) SetInvokeResponse(resp *InvokeResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invokeResponse = resp
}

// InvokeResponse returns the recorded invoke response, if any.
func (t *TurnContext) InvokeResponse() *InvokeResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.invokeResponse
}

// GetPagedMembers lists one page of the turn's conversation members.
func (t *TurnContext) GetPagedMembers(ctx context.Context, pageSize int, continuationToken string) (*PagedMembersResult, error) {
	conversationID := t.Activity.ConversationID()
	if conversationID == "" || t.Activity.ServiceURL == "" {
		return nil, fmt.Errorf("activity has no conversation to list members of")
	}
	return t.adapter.connector.GetPagedMembers(ctx, t.Activity.ServiceURL, conversationID, pageSize, continuationToken)
}

// GetAllMembers follows continuation tokens until every member is listed.
func (t *TurnContext) GetAllMembers(ctx context.Context) ([]ChannelAccount, error) {
	var (
		members []ChannelAccount
		token   string
	)
	for {
		page, err := t.GetPagedMembers(ctx, 0, token)
		if err != nil {
			return nil, fmt.Errorf("getting paged members: %w", err)
		}
		members = append(members, page.Members...)
		if page.ContinuationToken == "" || page.ContinuationToken == token {
			return members, nil
		}
		token = page.ContinuationToken
	}
}
