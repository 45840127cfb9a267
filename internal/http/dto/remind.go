package dto

import (
	"github.com/invopop/jsonschema"
)

// RemindRequest documents the body of POST /api/remind. Bodies are decoded
// with reminder.Decode; this type only feeds the published schema.
type RemindRequest struct {
	ConversationID string  `json:"conversationId" jsonschema:"required,description=Conversation the bot has already seen"`
	DelaySeconds   float64 `json:"delaySeconds" jsonschema:"required,description=Seconds to wait before posting; negative values post immediately"`
	Mention        Mention `json:"mention" jsonschema:"required,description=Participant to @mention"`
}

type Mention struct {
	ID   string `json:"id" jsonschema:"description=Channel account id of the participant"`
	Name string `json:"name" jsonschema:"description=Display name rendered in the mention"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Conversations int    `json:"conversations"`
}

// RemindSchema returns the JSON schema of RemindRequest.
func RemindSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(&RemindRequest{})
}
