package botframework_test

import (
	"context"
	"sync"

	"basegraph.app/reminder/internal/botframework"
)

type sentActivity struct {
	ServiceURL     string
	ConversationID string
	ReplyToID      string
	Activity       botframework.Activity
}

type mockConnector struct {
	mu   sync.Mutex
	sent []sentActivity

	sendErr   error
	membersFn func(ctx context.Context, serviceURL, conversationID string, pageSize int, token string) (*botframework.PagedMembersResult, error)
}

func (m *mockConnector) SendToConversation(_ context.Context, serviceURL, conversationID string, activity *botframework.Activity) (*botframework.ResourceResponse, error) {
	return m.record(serviceURL, conversationID, "", activity)
}

func (m *mockConnector) ReplyToActivity(_ context.Context, serviceURL, conversationID, activityID string, activity *botframework.Activity) (*botframework.ResourceResponse, error) {
	return m.record(serviceURL, conversationID, activityID, activity)
}

func (m *mockConnector) GetPagedMembers(ctx context.Context, serviceURL, conversationID string, pageSize int, token string) (*botframework.PagedMembersResult, error) {
	if m.membersFn != nil {
		return m.membersFn(ctx, serviceURL, conversationID, pageSize, token)
	}
	return &botframework.PagedMembersResult{}, nil
}

func (m *mockConnector) record(serviceURL, conversationID, replyTo string, activity *botframework.Activity) (*botframework.ResourceResponse, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentActivity{
		ServiceURL:     serviceURL,
		ConversationID: conversationID,
		ReplyToID:      replyTo,
		Activity:       *activity,
	})
	return &botframework.ResourceResponse{ID: activity.ID}, nil
}

func (m *mockConnector) Sent() []sentActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentActivity(nil), m.sent...)
}

type mockAuthenticator struct {
	err error
}

func (m *mockAuthenticator) Authenticate(context.Context, string, *botframework.Activity) error {
	return m.err
}

func inboundMessage(text string) *botframework.Activity {
	return &botframework.Activity{
		Type:         botframework.ActivityTypeMessage,
		ID:           "act-1",
		ChannelID:    botframework.ChannelEmulator,
		ServiceURL:   "https://service.example/",
		From:         &botframework.ChannelAccount{ID: "u1", Name: "Ann"},
		Recipient:    &botframework.ChannelAccount{ID: "bot", Name: "Reminder"},
		Conversation: &botframework.ConversationAccount{ID: "c1"},
		Text:         text,
	}
}
