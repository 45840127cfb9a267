package botframework

// ConversationReference is the return address of a conversation. It carries
// everything needed to post into the conversation outside of an inbound turn.
type ConversationReference struct {
	ActivityID   string               `json:"activityId,omitempty"`
	User         *ChannelAccount      `json:"user,omitempty"`
	Bot          *ChannelAccount      `json:"bot,omitempty"`
	Conversation *ConversationAccount `json:"conversation"`
	ChannelID    string               `json:"channelId"`
	Locale       string               `json:"locale,omitempty"`
	ServiceURL   string               `json:"serviceUrl"`
}

// GetConversationReference captures the return address of an inbound activity.
// The inbound recipient is the bot and the sender is the user.
func GetConversationReference(a *Activity) ConversationReference {
	ref := ConversationReference{
		ActivityID: a.ID,
		ChannelID:  a.ChannelID,
		Locale:     a.Locale,
		ServiceURL: a.ServiceURL,
	}
	if a.From != nil {
		user := *a.From
		ref.User = &user
	}
	if a.Recipient != nil {
		bot := *a.Recipient
		ref.Bot = &bot
	}
	if a.Conversation != nil {
		conv := *a.Conversation
		ref.Conversation = &conv
	}
	return ref
}

// ConversationID returns the referenced conversation id, or "".
func (r ConversationReference) ConversationID() string {
	if r.Conversation == nil {
		return ""
	}
	return r.Conversation.ID
}

// ApplyTo addresses an outgoing activity using the reference. When isIncoming
// is true the activity is treated as if it came from the user, which is how a
// continuation turn is built.
func (r ConversationReference) ApplyTo(a *Activity, isIncoming bool) *Activity {
	a.ChannelID = r.ChannelID
	a.ServiceURL = r.ServiceURL
	a.Conversation = r.Conversation
	if r.Locale != "" && a.Locale == "" {
		a.Locale = r.Locale
	}
	if isIncoming {
		a.From = r.User
		a.Recipient = r.Bot
		if r.ActivityID != "" {
			a.ID = r.ActivityID
		}
		return a
	}
	a.From = r.Bot
	a.Recipient = r.User
	if r.ActivityID != "" && a.Type != ActivityTypeConversationUpdate && a.Type != ActivityTypeEvent {
		a.ReplyToID = r.ActivityID
	}
	return a
}
