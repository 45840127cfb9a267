package card_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/card"
	"basegraph.app/reminder/internal/model"
	"basegraph.app/reminder/internal/reminder"
)

var _ = Describe("RemindForm", func() {
	members := []botframework.ChannelAccount{
		{ID: "u1", Name: "Ann"},
		{ID: "29:1a-b", Name: `Bo "the builder"`},
	}

	input := func(c card.Card, id string) card.Element {
		for _, el := range c.Body {
			if el.ID == id {
				return el
			}
		}
		Fail("no input " + id)
		return card.Element{}
	}

	It("offers 5, 15 and 30 seconds with 5 preselected", func() {
		delay := input(card.RemindForm(members), card.InputDelaySeconds)

		Expect(delay.Type).To(Equal("Input.ChoiceSet"))
		Expect(delay.Value).To(Equal("5"))
		Expect(delay.Choices).To(Equal([]card.Choice{
			{Title: "5 seconds", Value: "5"},
			{Title: "15 seconds", Value: "15"},
			{Title: "30 seconds", Value: "30"},
		}))
	})

	It("lists every member as a mention choice", func() {
		mention := input(card.RemindForm(members), card.InputMention)

		Expect(mention.Choices).To(HaveLen(2))
		Expect(mention.Choices[0].Title).To(Equal("Ann"))
		Expect(mention.Choices[0].Value).To(MatchJSON(`{"id":"u1","name":"Ann"}`))
	})

	It("submits with the schedule_reminder verb", func() {
		Expect(card.RemindForm(members).Actions).To(ConsistOf(card.Action{
			Type:  "Action.Execute",
			Title: "Schedule reminder",
			Verb:  card.VerbScheduleReminder,
		}))
	})

	It("round-trips the chosen participant through the submission", func() {
		choices := input(card.RemindForm(members), card.InputMention).Choices
		for i, m := range members {
			data, err := json.Marshal(map[string]string{
				card.InputDelaySeconds: "15",
				card.InputMention:      choices[i].Value,
			})
			Expect(err).NotTo(HaveOccurred())

			req, err := reminder.DecodeSubmission("c1", data)

			Expect(err).NotTo(HaveOccurred())
			Expect(req.Mention).To(Equal(model.Mention{ID: m.ID, Name: m.Name}))
			Expect(req.DelaySeconds).To(Equal(15.0))
		}
	})

	It("renders as an adaptive card attachment", func() {
		att := card.RemindForm(members).Attachment()
		Expect(att.ContentType).To(Equal(botframework.ContentTypeAdaptiveCard))

		raw, err := json.Marshal(att)
		Expect(err).NotTo(HaveOccurred())
		var decoded struct {
			Content struct {
				Type    string `json:"type"`
				Version string `json:"version"`
				Schema  string `json:"$schema"`
			} `json:"content"`
		}
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded.Content.Type).To(Equal("AdaptiveCard"))
		Expect(decoded.Content.Version).To(Equal("1.5"))
		Expect(decoded.Content.Schema).To(Equal("http://adaptivecards.io/schemas/adaptive-card.json"))
	})
})

var _ = Describe("Intro", func() {
	It("greets the user by name and links the overview", func() {
		c := card.Intro("Ann")

		Expect(c.Body[1].Text).To(Equal("Welcome, Ann!"))
		Expect(c.Actions).To(ConsistOf(HaveField("URL", ContainSubstring("azure/bot-service"))))
	})
})

var _ = Describe("Scheduled", func() {
	It("confirms the delay and who will be mentioned", func() {
		c := card.Scheduled(model.ReminderRequest{DelaySeconds: 5, Mention: model.Mention{ID: "u1", Name: "Ann"}})

		Expect(c.Body).To(HaveLen(1))
		Expect(c.Body[0].Text).To(Equal("Reminder scheduled in 5 seconds for Ann"))
	})
})
