package store_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/store"
)

var _ = Describe("ConversationReferences", func() {
	var refs *store.ConversationReferences

	reference := func(conversationID, activityID string) botframework.ConversationReference {
		return botframework.ConversationReference{
			ActivityID:   activityID,
			Conversation: &botframework.ConversationAccount{ID: conversationID},
			ServiceURL:   "https://service.example/",
		}
	}

	BeforeEach(func() {
		refs = store.NewConversationReferences()
	})

	It("reports unknown conversations as absent", func() {
		_, ok := refs.Get("c1")
		Expect(ok).To(BeFalse())
		Expect(refs.Len()).To(BeZero())
	})

	It("returns the last reference stored for a conversation", func() {
		refs.Put("c1", reference("c1", "a1"))
		refs.Put("c1", reference("c1", "a2"))

		ref, ok := refs.Get("c1")
		Expect(ok).To(BeTrue())
		Expect(ref.ActivityID).To(Equal("a2"))
		Expect(refs.Len()).To(Equal(1))
	})

	It("ignores references without a conversation id", func() {
		refs.Put("", reference("", "a1"))
		Expect(refs.Len()).To(BeZero())
	})

	It("is safe for concurrent use", func() {
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("c%d", i%5)
				refs.Put(id, reference(id, fmt.Sprint(i)))
				_, _ = refs.Get(id)
			}()
		}
		wg.Wait()

		Expect(refs.Len()).To(Equal(5))
	})
})
