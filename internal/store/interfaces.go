package store

import (
	"basegraph.app/reminder/internal/botframework"
)

// ConversationReferenceStore defines the contract for conversation reference access.
// Put overwrites any earlier reference for the conversation (last write wins).
type ConversationReferenceStore interface {
	Put(conversationID string, ref botframework.ConversationReference)
	Get(conversationID string) (botframework.ConversationReference, bool)
	Len() int
}
