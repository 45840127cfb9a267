package reminder

import (
	"fmt"

	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/model"
)

// NewMessage builds the reminder posted into the conversation. The mention
// entity makes the client render the name as an @mention of the participant.
func NewMessage(m model.Mention) *botframework.Activity {
	tag := fmt.Sprintf("<at>%s</at>", m.Name)
	msg := botframework.NewMessage(fmt.Sprintf("This is a reminder for %s!", tag))
	msg.Entities = []botframework.Entity{{
		Type:      botframework.EntityTypeMention,
		Mentioned: &botframework.ChannelAccount{ID: m.ID, Name: m.Name},
		Text:      tag,
	}}
	return msg
}
