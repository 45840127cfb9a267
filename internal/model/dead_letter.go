package model

import "time"

// DeadLetter records a reminder that could not be delivered after all
// attempts.
type DeadLetter struct {
	ID             string // stream entry id, empty until stored
	ReminderID     int64
	ConversationID string
	ServiceURL     string
	Mention        Mention
	DelaySeconds   float64
	Attempts       int
	Error          string
	TraceID        string
	FailedAt       time.Time
}
