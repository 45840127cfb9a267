package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"basegraph.app/reminder/internal/model"
)

// Validation failures. Every boundary that accepts a reminder (the HTTP body
// and the card submission) reports one of these.
var (
	ErrNotObject      = errors.New("reminder request must be a JSON object")
	ErrConversationID = errors.New("conversationId must be a string")
	ErrDelaySeconds   = errors.New("delaySeconds must be a number")
	ErrMention        = errors.New("mention must be an object")
)

// IsValidationError reports whether err is one of the validation failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNotObject) ||
		errors.Is(err, ErrConversationID) ||
		errors.Is(err, ErrDelaySeconds) ||
		errors.Is(err, ErrMention)
}

// IsReminder reports whether v, a value decoded from JSON, has a string
// conversationId, a numeric delaySeconds and an object mention. The fields of
// mention and the range of delaySeconds are not checked.
func IsReminder(v any) bool {
	return check(v) == nil
}

func check(v any) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return ErrNotObject
	}
	if _, ok := obj["conversationId"].(string); !ok {
		return ErrConversationID
	}
	if _, ok := obj["delaySeconds"].(float64); !ok {
		return ErrDelaySeconds
	}
	if _, ok := obj["mention"].(map[string]any); !ok {
		return ErrMention
	}
	return nil
}

// Decode parses and validates a reminder request body.
func Decode(data []byte) (model.ReminderRequest, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.ReminderRequest{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if err := check(raw); err != nil {
		return model.ReminderRequest{}, err
	}

	obj := raw.(map[string]any)
	mention := obj["mention"].(map[string]any)
	return model.ReminderRequest{
		ConversationID: obj["conversationId"].(string),
		DelaySeconds:   obj["delaySeconds"].(float64),
		Mention:        mentionFrom(mention),
	}, nil
}

// DecodeSubmission turns the data of a submitted reminder card into a request
// for conversationID. Card inputs arrive as strings: delaySeconds is an
// integer and mention is the JSON encoded participant chosen on the card.
func DecodeSubmission(conversationID string, data json.RawMessage) (model.ReminderRequest, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return model.ReminderRequest{}, ErrNotObject
	}

	delay, err := submittedDelay(fields["delaySeconds"])
	if err != nil {
		return model.ReminderRequest{}, err
	}

	raw, ok := fields["mention"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return model.ReminderRequest{}, fmt.Errorf("%w: no participant selected", ErrMention)
	}
	var mention model.Mention
	if err := json.Unmarshal([]byte(raw), &mention); err != nil {
		return model.ReminderRequest{}, fmt.Errorf("%w: %v", ErrMention, err)
	}
	if mention.ID == "" {
		return model.ReminderRequest{}, fmt.Errorf("%w: missing id", ErrMention)
	}

	return model.ReminderRequest{
		ConversationID: conversationID,
		DelaySeconds:   float64(delay),
		Mention:        mention,
	}, nil
}

func submittedDelay(v any) (int, error) {
	switch d := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrDelaySeconds, d)
		}
		return n, nil
	case float64:
		return int(d), nil
	default:
		return 0, ErrDelaySeconds
	}
}

func mentionFrom(obj map[string]any) model.Mention {
	id, _ := obj["id"].(string)
	name, _ := obj["name"].(string)
	return model.Mention{ID: id, Name: name}
}
