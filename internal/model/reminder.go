package model

// Mention is a conversation participant a reminder @mentions.
type Mention struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReminderRequest asks the bot to post a reminder mentioning a participant
// into a known conversation once the delay has elapsed. It has no identity of
// its own until the scheduler accepts it.
type ReminderRequest struct {
	ConversationID string  `json:"conversationId"`
	DelaySeconds   float64 `json:"delaySeconds"`
	Mention        Mention `json:"mention"`
}
