package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/reminder/core/config"
	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/http/handler"
	"basegraph.app/reminder/internal/model"
	"basegraph.app/reminder/internal/reminder"
	"basegraph.app/reminder/internal/store"
)

var _ = Describe("ReminderHandler", func() {
	var (
		router    *gin.Engine
		refs      *store.ConversationReferences
		scheduler *mockScheduler
	)

	const validBody = `{"conversationId":"c1","delaySeconds":5,"mention":{"id":"u1","name":"Ann"}}`

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/remind", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		refs = store.NewConversationReferences()
		scheduler = &mockScheduler{}
		router = gin.New()
		h := handler.NewReminderHandler(refs, scheduler)
		router.POST("/api/remind", h.Remind)
		router.GET("/api/remind/schema", h.Schema)
	})

	It("accepts a reminder for a known conversation", func() {
		refs.Put("c1", knownReference())

		w := post(validBody)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/html"))
		Expect(w.Body.String()).To(Equal("<html><body><h1>Proactive messages have been sent.</h1></body></html>"))
		Expect(scheduler.Scheduled()).To(ConsistOf(scheduled{
			Ref: knownReference(),
			Req: model.ReminderRequest{ConversationID: "c1", DelaySeconds: 5, Mention: model.Mention{ID: "u1", Name: "Ann"}},
		}))
	})

	It("rejects reminders for conversations it has never seen", func() {
		w := post(validBody)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.Len()).To(BeZero())
		Expect(scheduler.Scheduled()).To(BeEmpty())
	})

	DescribeTable("rejects malformed bodies without detail",
		func(body string) {
			refs.Put("c1", knownReference())

			w := post(body)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.Len()).To(BeZero())
			Expect(scheduler.Scheduled()).To(BeEmpty())
		},
		Entry("empty", ``),
		Entry("not json", `conversationId=c1`),
		Entry("missing mention", `{"conversationId":"c1","delaySeconds":5}`),
		Entry("delay as string", `{"conversationId":"c1","delaySeconds":"5","mention":{}}`),
		Entry("conversation as number", `{"conversationId":1,"delaySeconds":5,"mention":{}}`),
	)

	It("accepts mentions whose fields are not checked", func() {
		refs.Put("c1", knownReference())

		w := post(`{"conversationId":"c1","delaySeconds":5,"mention":{}}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(scheduler.Scheduled()).To(HaveLen(1))
	})

	It("publishes the request schema", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/remind/schema", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var schema struct {
			Type       string         `json:"type"`
			Required   []string       `json:"required"`
			Properties map[string]any `json:"properties"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &schema)).To(Succeed())
		Expect(schema.Type).To(Equal("object"))
		Expect(schema.Required).To(ConsistOf("conversationId", "delaySeconds", "mention"))
		Expect(schema.Properties).To(HaveKey("mention"))
	})

	Context("with the real scheduler", func() {
		var connector *blockingConnector

		BeforeEach(func() {
			connector = newBlockingConnector()
			adapter := botframework.NewAdapter(connector, nil)
			realScheduler := reminder.NewScheduler(adapter, nil, config.ReminderConfig{
				MaxAttempts: 1,
				SendTimeout: 5 * time.Second,
			}, reminder.WithClock(clockwork.NewFakeClock()))

			router = gin.New()
			router.POST("/api/remind", handler.NewReminderHandler(refs, realScheduler).Remind)
			refs.Put("c1", knownReference())
		})

		It("answers before a zero-delay reminder is delivered", func() {
			w := post(`{"conversationId":"c1","delaySeconds":0,"mention":{"id":"u1","name":"Ann"}}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(connector.Sent()).To(BeEmpty())

			close(connector.release)

			Eventually(connector.Sent).Should(HaveLen(1))
			Expect(connector.Sent()[0].Text).To(Equal("This is a reminder for <at>Ann</at>!"))
		})
	})
})
