package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"basegraph.app/reminder/internal/model"
)

// DeadLetterProducer records reminders that could not be delivered.
type DeadLetterProducer interface {
	Push(ctx context.Context, dl model.DeadLetter) error
	Close() error
}

type redisDeadLetters struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewRedisDeadLetters appends dead letters to a redis stream, where
// cmd/deadletters can list and purge them.
func NewRedisDeadLetters(client *redis.Client, stream string, logger *slog.Logger) DeadLetterProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisDeadLetters{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisDeadLetters) Push(ctx context.Context, dl model.DeadLetter) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: deadLetterValues(dl),
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", p.stream, err)
	}

	p.logger.ErrorContext(ctx, "reminder sent to DLQ",
		"reminder_id", dl.ReminderID,
		"attempts", dl.Attempts,
		"final_error", dl.Error,
		"dlq_stream", p.stream)
	return nil
}

func (p *redisDeadLetters) Close() error {
	return p.client.Close()
}

type logDeadLetters struct {
	logger *slog.Logger
}

// NewLogDeadLetters only logs dead letters. Used when no redis is configured.
func NewLogDeadLetters(logger *slog.Logger) DeadLetterProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logDeadLetters{logger: logger}
}

func (p *logDeadLetters) Push(ctx context.Context, dl model.DeadLetter) error {
	p.logger.ErrorContext(ctx, "reminder dropped after failed delivery",
		"reminder_id", dl.ReminderID,
		"mention_id", dl.Mention.ID,
		"delay_seconds", dl.DelaySeconds,
		"attempts", dl.Attempts,
		"final_error", dl.Error)
	return nil
}

func (p *logDeadLetters) Close() error {
	return nil
}
