package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/reminder/internal/model"
)

// DeadLetterReader inspects the dead-letter stream.
type DeadLetterReader struct {
	client *redis.Client
	stream string
}

func NewDeadLetterReader(client *redis.Client, stream string) *DeadLetterReader {
	return &DeadLetterReader{client: client, stream: stream}
}

// List returns up to count dead letters, newest first. Entries that cannot
// be parsed are returned as errors rather than skipped.
func (r *DeadLetterReader) List(ctx context.Context, count int64) ([]model.DeadLetter, error) {
	msgs, err := r.client.XRevRangeN(ctx, r.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange (stream=%s): %w", r.stream, err)
	}

	letters := make([]model.DeadLetter, 0, len(msgs))
	for _, msg := range msgs {
		dl, err := ParseDeadLetter(msg)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", msg.ID, err)
		}
		letters = append(letters, dl)
	}
	return letters, nil
}

// Len returns the number of dead letters in the stream.
func (r *DeadLetterReader) Len(ctx context.Context) (int64, error) {
	n, err := r.client.XLen(ctx, r.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen (stream=%s): %w", r.stream, err)
	}
	return n, nil
}

// Delete removes entries by stream id and returns how many existed.
func (r *DeadLetterReader) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.client.XDel(ctx, r.stream, ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("xdel (stream=%s): %w", r.stream, err)
	}
	return n, nil
}

func ParseDeadLetter(msg redis.XMessage) (model.DeadLetter, error) {
	reminderID, err := parseInt64(msg.Values, "reminder_id")
	if err != nil {
		return model.DeadLetter{}, err
	}
	conversationID, err := parseString(msg.Values, "conversation_id")
	if err != nil {
		return model.DeadLetter{}, err
	}
	errMsg, err := parseString(msg.Values, "error")
	if err != nil {
		return model.DeadLetter{}, err
	}

	attempts, err := parseOptionalInt(msg.Values, "attempts")
	if err != nil {
		return model.DeadLetter{}, err
	}
	delay, err := parseOptionalFloat(msg.Values, "delay_seconds")
	if err != nil {
		return model.DeadLetter{}, err
	}
	failedAt, err := parseOptionalTime(msg.Values, "failed_at")
	if err != nil {
		return model.DeadLetter{}, err
	}

	return model.DeadLetter{
		ID:             msg.ID,
		ReminderID:     reminderID,
		ConversationID: conversationID,
		ServiceURL:     parseOptionalString(msg.Values, "service_url"),
		Mention: model.Mention{
			ID:   parseOptionalString(msg.Values, "mention_id"),
			Name: parseOptionalString(msg.Values, "mention_name"),
		},
		DelaySeconds: delay,
		Attempts:     attempts,
		Error:        errMsg,
		TraceID:      parseOptionalString(msg.Values, "trace_id"),
		FailedAt:     failedAt,
	}, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalFloat(values map[string]any, key string) (float64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.ParseFloat(fmt.Sprint(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalTime(values map[string]any, key string) (time.Time, error) {
	raw, ok := values[key]
	if !ok {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, fmt.Sprint(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", key, err)
	}
	return t, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}

func deadLetterValues(dl model.DeadLetter) map[string]any {
	values := map[string]any{
		"reminder_id":     dl.ReminderID,
		"conversation_id": dl.ConversationID,
		"delay_seconds":   strconv.FormatFloat(dl.DelaySeconds, 'f', -1, 64),
		"attempts":        dl.Attempts,
		"error":           dl.Error,
	}

	if dl.ServiceURL != "" {
		values["service_url"] = dl.ServiceURL
	}
	if dl.Mention.ID != "" {
		values["mention_id"] = dl.Mention.ID
	}
	if dl.Mention.Name != "" {
		values["mention_name"] = dl.Mention.Name
	}
	if dl.TraceID != "" {
		values["trace_id"] = dl.TraceID
	}
	if !dl.FailedAt.IsZero() {
		values["failed_at"] = dl.FailedAt.UTC().Format(time.RFC3339Nano)
	}

	return values
}
