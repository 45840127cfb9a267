package reminder_test

import (
	"context"
	"sync"

	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/model"
)

type mockConnector struct {
	mu    sync.Mutex
	calls int
	sent  []botframework.Activity

	sendFn func(call int) error
}

func (m *mockConnector) SendToConversation(_ context.Context, _, _ string, activity *botframework.Activity) (*botframework.ResourceResponse, error) {
	return m.record(activity)
}

func (m *mockConnector) ReplyToActivity(_ context.Context, _, _, _ string, activity *botframework.Activity) (*botframework.ResourceResponse, error) {
	return m.record(activity)
}

func (m *mockConnector) GetPagedMembers(context.Context, string, string, int, string) (*botframework.PagedMembersResult, error) {
	return &botframework.PagedMembersResult{}, nil
}

func (m *mockConnector) record(activity *botframework.Activity) (*botframework.ResourceResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.sendFn != nil {
		if err := m.sendFn(m.calls); err != nil {
			return nil, err
		}
	}
	m.sent = append(m.sent, *activity)
	return &botframework.ResourceResponse{ID: activity.ID}, nil
}

func (m *mockConnector) Sent() []botframework.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]botframework.Activity(nil), m.sent...)
}

func (m *mockConnector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSink struct {
	mu      sync.Mutex
	letters []model.DeadLetter
}

func (m *mockSink) Push(_ context.Context, dl model.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters = append(m.letters, dl)
	return nil
}

func (m *mockSink) Letters() []model.DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DeadLetter(nil), m.letters...)
}

func mentionedName(a botframework.Activity) string {
	if len(a.Entities) == 0 || a.Entities[0].Mentioned == nil {
		return ""
	}
	return a.Entities[0].Mentioned.Name
}

func conversationRef() botframework.ConversationReference {
	return botframework.ConversationReference{
		ActivityID:   "act-1",
		User:         &botframework.ChannelAccount{ID: "u1", Name: "Ann"},
		Bot:          &botframework.ChannelAccount{ID: "bot", Name: "Reminder"},
		Conversation: &botframework.ConversationAccount{ID: "c1"},
		ChannelID:    botframework.ChannelEmulator,
		ServiceURL:   "https://service.example/",
	}
}
