package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/reminder/common/logger"
	"basegraph.app/reminder/core/config"
)

var _ = Describe("TraceHandler", func() {
	var buf *bytes.Buffer

	record := func(h slog.Handler, ctx context.Context) map[string]any {
		buf.Reset()
		slog.New(h).InfoContext(ctx, "reminder scheduled")
		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	spanCtx := func() context.Context {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35},
			SpanID:     trace.SpanID{0x00, 0xf0, 0x67},
			TraceFlags: trace.FlagsSampled,
		})
		return trace.ContextWithSpanContext(context.Background(), sc)
	}

	It("adds log fields carried by the context", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			ConversationID: logger.Ptr("c1"),
			Component:      "reminder.scheduler",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{ReminderID: logger.Ptr(int64(42))})

		out := record(logger.NewTraceHandler(slog.NewJSONHandler(buf, nil)), ctx)

		Expect(out).To(HaveKeyWithValue("conversation_id", "c1"))
		Expect(out).To(HaveKeyWithValue("reminder_id", BeNumerically("==", 42)))
		Expect(out).To(HaveKeyWithValue("component", "reminder.scheduler"))
		Expect(out).NotTo(HaveKey("activity_id"))
	})

	It("adds the active trace and span ids", func() {
		out := record(logger.NewTraceHandler(slog.NewJSONHandler(buf, nil)), spanCtx())

		Expect(out).To(HaveKeyWithValue("trace_id", HavePrefix("4bf92f35")))
		Expect(out).To(HaveKey("span_id"))
	})

	It("leaves trace ids to handlers that export them", func() {
		out := record(logger.NewFieldsHandler(slog.NewJSONHandler(buf, nil)), spanCtx())

		Expect(out).NotTo(HaveKey("trace_id"))
	})

	It("keeps its behaviour through WithAttrs", func() {
		h := logger.NewFieldsHandler(slog.NewJSONHandler(buf, nil)).WithAttrs([]slog.Attr{slog.String("service", "bot")})

		out := record(h, spanCtx())

		Expect(out).To(HaveKeyWithValue("service", "bot"))
		Expect(out).NotTo(HaveKey("trace_id"))
	})
})

var _ = Describe("NewHandler", func() {
	It("writes JSON in production", func() {
		var buf bytes.Buffer
		h := logger.NewHandler(config.Config{Env: "production"}, &buf)

		slog.New(h).Info("ready")

		Expect(json.Valid(buf.Bytes())).To(BeTrue())
	})

	It("logs debug in development", func() {
		h := logger.NewHandler(config.Config{Env: "development"}, &bytes.Buffer{})

		Expect(h.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
	})

	It("logs info and up elsewhere", func() {
		h := logger.NewHandler(config.Config{Env: "production"}, &bytes.Buffer{})

		Expect(h.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
	})
})

var _ = Describe("Truncate", func() {
	It("keeps short strings", func() {
		Expect(logger.Truncate("Ann", 10)).To(Equal("Ann"))
	})

	It("cuts on rune boundaries", func() {
		Expect(logger.Truncate("Zoë Åberg", 3)).To(Equal("Zoë..."))
	})
})
