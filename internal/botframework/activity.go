package botframework

import "encoding/json"

// Activity types used by this bot.
const (
	ActivityTypeMessage            = "message"
	ActivityTypeConversationUpdate = "conversationUpdate"
	ActivityTypeInstallationUpdate = "installationUpdate"
	ActivityTypeInvoke             = "invoke"
	ActivityTypeInvokeResponse     = "invokeResponse"
	ActivityTypeEvent              = "event"
	ActivityTypeTrace              = "trace"
)

const (
	ChannelEmulator = "emulator"
	ChannelTeams    = "msteams"

	ContentTypeAdaptiveCard = "application/vnd.microsoft.card.adaptive"
	ContentTypeError        = "application/vnd.microsoft.error"

	InvokeAdaptiveCardAction = "adaptiveCard/action"
	EntityTypeMention        = "mention"
)

// Activity is the Bot Framework activity envelope. Only the fields this bot
// reads or writes are modelled; unknown fields are dropped on decode.
type Activity struct {
	Type         string               `json:"type"`
	ID           string               `json:"id,omitempty"`
	Timestamp    string               `json:"timestamp,omitempty"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	From         *ChannelAccount      `json:"from,omitempty"`
	Recipient    *ChannelAccount      `json:"recipient,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	ReplyToID    string               `json:"replyToId,omitempty"`
	Locale       string               `json:"locale,omitempty"`
	Text         string               `json:"text,omitempty"`
	TextFormat   string               `json:"textFormat,omitempty"`
	Name         string               `json:"name,omitempty"`
	Label        string               `json:"label,omitempty"`
	ValueType    string               `json:"valueType,omitempty"`
	Value        json.RawMessage      `json:"value,omitempty"`
	Action       string               `json:"action,omitempty"`
	MembersAdded []ChannelAccount     `json:"membersAdded,omitempty"`
	Attachments  []Attachment         `json:"attachments,omitempty"`
	Entities     []Entity             `json:"entities,omitempty"`
}

type ChannelAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	AADObjectID string `json:"aadObjectId,omitempty"`
	Role        string `json:"role,omitempty"`
}

type ConversationAccount struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
}

type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content,omitempty"`
	ContentURL  string `json:"contentUrl,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Entity is an activity annotation. Only mention entities are produced here.
type Entity struct {
	Type      string          `json:"type"`
	Mentioned *ChannelAccount `json:"mentioned,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// InvokeResponse is returned synchronously for invoke activities.
type InvokeResponse struct {
	Status int `json:"status"`
	Body   any `json:"body,omitempty"`
}

type ResourceResponse struct {
	ID string `json:"id"`
}

type PagedMembersResult struct {
	ContinuationToken string           `json:"continuationToken,omitempty"`
	Members           []ChannelAccount `json:"members"`
}

// NewMessage returns a plain text message activity.
func NewMessage(text string) *Activity {
	return &Activity{Type: ActivityTypeMessage, Text: text}
}

// NewAttachmentMessage returns a message activity carrying a single attachment.
func NewAttachmentMessage(a Attachment) *Activity {
	return &Activity{Type: ActivityTypeMessage, Attachments: []Attachment{a}}
}

// AdaptiveCardAttachment wraps an adaptive card for sending.
func AdaptiveCardAttachment(card any) Attachment {
	return Attachment{ContentType: ContentTypeAdaptiveCard, Content: card}
}

// ConversationID returns the conversation id, or "" when absent.
func (a *Activity) ConversationID() string {
	if a == nil || a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}
