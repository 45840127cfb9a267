package botframework_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/reminder/core/config"
	"basegraph.app/reminder/internal/botframework"
)

var _ = Describe("ConnectorClient", func() {
	var (
		ctx        context.Context
		mux        *http.ServeMux
		server     *httptest.Server
		tokenCalls atomic.Int32
		lastAuth   atomic.Value
		lastPath   atomic.Value
		lastText   atomic.Value
	)

	BeforeEach(func() {
		ctx = context.Background()
		tokenCalls.Store(0)
		mux = http.NewServeMux()
		mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			tokenCalls.Add(1)
			Expect(r.ParseForm()).To(Succeed())
			Expect(r.PostForm.Get("grant_type")).To(Equal("client_credentials"))
			Expect(r.PostForm.Get("scope")).To(Equal("https://api.botframework.com/.default"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
		})
		mux.HandleFunc("POST /v3/conversations/{conversation}/activities", func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			lastAuth.Store(r.Header.Get("Authorization"))
			lastPath.Store(r.URL.EscapedPath())
			var payload botframework.Activity
			Expect(json.NewDecoder(r.Body).Decode(&payload)).To(Succeed())
			lastText.Store(payload.Text)
			_, _ = w.Write([]byte(`{"id":"res-1"}`))
		})
		mux.HandleFunc("POST /v3/conversations/{conversation}/activities/{activity}", func(w http.ResponseWriter, r *http.Request) {
			lastPath.Store(r.URL.EscapedPath())
			w.WriteHeader(http.StatusCreated)
		})
		mux.HandleFunc("GET /v3/conversations/{conversation}/pagedmembers", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("continuationToken") == "" {
				_, _ = w.Write([]byte(`{"continuationToken":"next","members":[{"id":"u1","name":"Ann"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"members":[{"id":"u2","name":"Bo"}]}`))
		})
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
	})

	Context("with app credentials", func() {
		var client *botframework.ConnectorClient

		BeforeEach(func() {
			client = botframework.NewConnectorClient(config.BotConfig{
				AppID:       "app",
				AppPassword: "secret",
				TokenURL:    server.URL + "/token",
			}, server.Client())
		})

		It("sends activities with a client-credentials bearer token", func() {
			res, err := client.SendToConversation(ctx, server.URL, "19:abc@thread.v2", botframework.NewMessage("hi"))

			Expect(err).NotTo(HaveOccurred())
			Expect(res.ID).To(Equal("res-1"))
			Expect(lastAuth.Load()).To(Equal("Bearer tok"))
			Expect(lastPath.Load()).To(Equal("/v3/conversations/19:abc@thread.v2/activities"))
			Expect(lastText.Load()).To(Equal("hi"))
		})

		It("reuses the cached token", func() {
			_, err := client.SendToConversation(ctx, server.URL, "c1", botframework.NewMessage("one"))
			Expect(err).NotTo(HaveOccurred())
			_, err = client.SendToConversation(ctx, server.URL+"/", "c1", botframework.NewMessage("two"))
			Expect(err).NotTo(HaveOccurred())

			Expect(tokenCalls.Load()).To(Equal(int32(1)))
		})
	})

	Context("without app credentials", func() {
		var client *botframework.ConnectorClient

		BeforeEach(func() {
			client = botframework.NewConnectorClient(config.BotConfig{}, server.Client())
		})

		It("sends anonymously", func() {
			_, err := client.SendToConversation(ctx, server.URL, "c1", botframework.NewMessage("hi"))

			Expect(err).NotTo(HaveOccurred())
			Expect(lastAuth.Load()).To(Equal(""))
			Expect(tokenCalls.Load()).To(BeZero())
		})

		It("tolerates empty reply bodies", func() {
			res, err := client.ReplyToActivity(ctx, server.URL, "c1", "a1", botframework.NewMessage("hi"))

			Expect(err).NotTo(HaveOccurred())
			Expect(res.ID).To(BeEmpty())
			Expect(lastPath.Load()).To(Equal("/v3/conversations/c1/activities/a1"))
		})

		It("pages members", func() {
			first, err := client.GetPagedMembers(ctx, server.URL, "c1", 0, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.ContinuationToken).To(Equal("next"))
			Expect(first.Members).To(ConsistOf(botframework.ChannelAccount{ID: "u1", Name: "Ann"}))

			second, err := client.GetPagedMembers(ctx, server.URL, "c1", 0, first.ContinuationToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ContinuationToken).To(BeEmpty())
		})

		It("returns an APIError for failed calls", func() {
			mux.HandleFunc("POST /v3/conversations/missing/activities", func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "conversation not found", http.StatusNotFound)
			})

			_, err := client.SendToConversation(ctx, server.URL, "missing", botframework.NewMessage("hi"))

			var apiErr *botframework.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(http.StatusNotFound))
			Expect(apiErr.Retryable()).To(BeFalse())
		})
	})
})

var _ = DescribeTable("APIError.Retryable",
	func(status int, retryable bool) {
		Expect((&botframework.APIError{StatusCode: status}).Retryable()).To(Equal(retryable))
	},
	Entry("bad request", http.StatusBadRequest, false),
	Entry("forbidden", http.StatusForbidden, false),
	Entry("not found", http.StatusNotFound, false),
	Entry("request timeout", http.StatusRequestTimeout, true),
	Entry("throttled", http.StatusTooManyRequests, true),
	Entry("server error", http.StatusInternalServerError, true),
	Entry("bad gateway", http.StatusBadGateway, true),
)
