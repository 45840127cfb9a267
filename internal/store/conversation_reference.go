package store

import (
	"sync"

	"basegraph.app/reminder/internal/botframework"
)

// ConversationReferences keeps the return address of every conversation the
// bot has seen for the lifetime of the process. No eviction, no size bound.
type ConversationReferences struct {
	mu   sync.RWMutex
	refs map[string]botframework.ConversationReference
}

func NewConversationReferences() *ConversationReferences {
	return &ConversationReferences{refs: make(map[string]botframework.ConversationReference)}
}

func (s *ConversationReferences) Put(conversationID string, ref botframework.ConversationReference) {
	if conversationID == "" {
		return
	}
	s.mu.Lock()
	s.refs[conversationID] = ref
	s.mu.Unlock()
}

func (s *ConversationReferences) Get(conversationID string) (botframework.ConversationReference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[conversationID]
	return ref, ok
}

func (s *ConversationReferences) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

var _ ConversationReferenceStore = (*ConversationReferences)(nil)
