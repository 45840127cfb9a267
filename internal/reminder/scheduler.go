package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/reminder/common/id"
	"basegraph.app/reminder/common/logger"
	"basegraph.app/reminder/core/config"
	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/model"
)

// Continuer re-enters a conversation from a stored reference.
type Continuer interface {
	ContinueConversation(ctx context.Context, ref botframework.ConversationReference, fn botframework.TurnFunc) error
}

// DeadLetterSink receives reminders whose delivery failed for good.
type DeadLetterSink interface {
	Push(ctx context.Context, dl model.DeadLetter) error
}

// Scheduler delivers reminders after their delay. Every reminder runs on its
// own goroutine with its own timer, so reminders are not ordered relative to
// each other and there is no cap on how many are pending.
type Scheduler struct {
	continuer Continuer
	sink      DeadLetterSink
	clock     clockwork.Clock
	cfg       config.ReminderConfig

	wg sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock used for reminder delays.
func WithClock(c clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

func NewScheduler(continuer Continuer, sink DeadLetterSink, cfg config.ReminderConfig, opts ...SchedulerOption) *Scheduler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	s := &Scheduler{
		continuer: continuer,
		sink:      sink,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule starts delivery of req into the referenced conversation and
// returns the reminder id without waiting. The delivery outlives ctx;
// only its values (trace, log fields) are carried over.
func (s *Scheduler) Schedule(ctx context.Context, ref botframework.ConversationReference, req model.ReminderRequest) int64 {
	reminderID := id.New()
	ctx = logger.WithLogFields(context.WithoutCancel(ctx), logger.LogFields{
		ConversationID: logger.Ptr(ref.ConversationID()),
		ReminderID:     logger.Ptr(reminderID),
		Component:      "reminder.scheduler",
	})

	delay := delayDuration(req.DelaySeconds)

	slog.InfoContext(ctx, "reminder scheduled",
		"delay", delay,
		"mention_id", req.Mention.ID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			<-s.clock.After(delay)
		}
		s.deliver(ctx, reminderID, ref, req)
	}()

	return reminderID
}

// delayDuration converts a delay in seconds, clamping negative delays to zero
// and delays beyond time.Duration's range to its maximum.
func delayDuration(seconds float64) time.Duration {
	switch {
	case seconds <= 0 || math.IsNaN(seconds):
		return 0
	case seconds >= float64(math.MaxInt64)/float64(time.Second):
		return time.Duration(math.MaxInt64)
	default:
		return time.Duration(seconds * float64(time.Second))
	}
}

// Wait blocks until all pending reminders have finished or ctx is done.
// It exists for graceful shutdown.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) deliver(ctx context.Context, reminderID int64, ref botframework.ConversationReference, req model.ReminderRequest) {
	span := logger.StartSpan(ctx, "reminder.deliver",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.Int64("reminder.id", reminderID),
			attribute.String("conversation.id", ref.ConversationID()),
		))
	defer span.End()
	ctx = span.Context()

	b := backoff.NewExponentialBackOff()
	if s.cfg.InitialBackoff > 0 {
		b.InitialInterval = s.cfg.InitialBackoff
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, s.send(ctx, ref, req)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "reminder delivery failed, retrying",
				"error", err,
				"attempt", attempts,
				"retry_in", next)
		}),
	)
	span.Span().SetAttributes(attribute.Int("reminder.attempts", attempts))

	if err == nil {
		slog.InfoContext(ctx, "reminder delivered", "attempts", attempts)
		return
	}

	span.RecordError(err)
	slog.ErrorContext(ctx, "reminder delivery failed",
		"error", err,
		"attempts", attempts)

	if s.sink == nil {
		return
	}
	dl := model.DeadLetter{
		ReminderID:     reminderID,
		ConversationID: ref.ConversationID(),
		ServiceURL:     ref.ServiceURL,
		Mention:        req.Mention,
		DelaySeconds:   req.DelaySeconds,
		Attempts:       attempts,
		Error:          err.Error(),
		TraceID:        span.TraceID(),
		FailedAt:       s.clock.Now(),
	}
	if sinkErr := s.sink.Push(ctx, dl); sinkErr != nil {
		slog.ErrorContext(ctx, "failed to dead-letter reminder", "error", sinkErr)
	}
}

// send makes one delivery attempt. Failures the platform will not accept on
// a retry are returned as permanent.
func (s *Scheduler) send(ctx context.Context, ref botframework.ConversationReference, req model.ReminderRequest) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	err := s.continuer.ContinueConversation(ctx, ref, func(ctx context.Context, turn *botframework.TurnContext) error {
		_, err := turn.SendActivity(ctx, NewMessage(req.Mention))
		return err
	})
	if err == nil {
		return nil
	}

	var apiErr *botframework.APIError
	if errors.As(err, &apiErr) && !apiErr.Retryable() {
		return backoff.Permanent(err)
	}
	if errors.Is(err, botframework.ErrInvalidActivity) {
		return backoff.Permanent(err)
	}
	return fmt.Errorf("sending reminder: %w", err)
}
