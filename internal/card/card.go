// Package card builds the adaptive cards the reminder bot sends.
package card

import (
	"encoding/json"
	"fmt"
	"strconv"

	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/model"
)

const (
	schemaURL = "http://adaptivecards.io/schemas/adaptive-card.json"
	version   = "1.5"

	// VerbScheduleReminder is the Action.Execute verb of the reminder form.
	VerbScheduleReminder = "schedule_reminder"

	// Input ids of the reminder form, echoed back in the submitted data.
	InputDelaySeconds = "delaySeconds"
	InputMention      = "mention"

	welcomeImageURL = "https://aka.ms/bf-welcome-card-image"
	overviewURL     = "https://docs.microsoft.com/en-us/azure/bot-service/?view=azure-bot-service-4.0"
)

// DelayChoices are the delays, in seconds, offered on the reminder form. The
// first one is preselected.
var DelayChoices = []int{5, 15, 30}

type Card struct {
	Schema  string    `json:"$schema"`
	Type    string    `json:"type"`
	Version string    `json:"version"`
	Body    []Element `json:"body"`
	Actions []Action  `json:"actions,omitempty"`
}

// Element is a body element. Only the properties used by this bot's cards
// are modelled.
type Element struct {
	Type        string   `json:"type"`
	ID          string   `json:"id,omitempty"`
	Text        string   `json:"text,omitempty"`
	URL         string   `json:"url,omitempty"`
	Size        string   `json:"size,omitempty"`
	Weight      string   `json:"weight,omitempty"`
	Wrap        bool     `json:"wrap,omitempty"`
	Style       string   `json:"style,omitempty"`
	Label       string   `json:"label,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Value       string   `json:"value,omitempty"`
	IsRequired  bool     `json:"isRequired,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
}

type Choice struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type Action struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Verb  string `json:"verb,omitempty"`
	URL   string `json:"url,omitempty"`
}

func newCard(body ...Element) Card {
	return Card{Schema: schemaURL, Type: "AdaptiveCard", Version: version, Body: body}
}

// Attachment wraps the card for sending in a message.
func (c Card) Attachment() botframework.Attachment {
	return botframework.AdaptiveCardAttachment(c)
}

// RemindForm asks for a delay and a participant to @mention. Every member
// becomes a choice whose value is the JSON encoded {id, name} pair.
func RemindForm(members []botframework.ChannelAccount) Card {
	delays := make([]Choice, 0, len(DelayChoices))
	for _, d := range DelayChoices {
		delays = append(delays, Choice{
			Title: fmt.Sprintf("%d seconds", d),
			Value: strconv.Itoa(d),
		})
	}

	people := make([]Choice, 0, len(members))
	for _, m := range members {
		people = append(people, Choice{Title: m.Name, Value: MentionValue(m)})
	}

	c := newCard(
		Element{Type: "TextBlock", Text: "Create a reminder", Size: "Medium", Weight: "Bolder"},
		Element{
			Type:    "Input.ChoiceSet",
			ID:      InputDelaySeconds,
			Style:   "compact",
			Label:   "Remind after",
			Value:   delays[0].Value,
			Choices: delays,
		},
		Element{
			Type:        "Input.ChoiceSet",
			ID:          InputMention,
			Style:       "compact",
			Label:       "Who to @mention",
			Placeholder: "Select a person",
			Choices:     people,
		},
	)
	c.Actions = []Action{{Type: "Action.Execute", Title: "Schedule reminder", Verb: VerbScheduleReminder}}
	return c
}

// MentionValue encodes a member as the value of a mention choice.
func MentionValue(m botframework.ChannelAccount) string {
	b, _ := json.Marshal(model.Mention{ID: m.ID, Name: m.Name})
	return string(b)
}

// Intro greets a user and explains how to use the bot.
func Intro(name string) Card {
	c := newCard(
		Element{Type: "Image", URL: welcomeImageURL, Size: "Stretch"},
		Element{Type: "TextBlock", Text: fmt.Sprintf("Welcome, %s!", name), Size: "Medium", Weight: "Bolder"},
		Element{Type: "TextBlock", Text: "Use the 'remind' command to schedule a reminder.", Size: "Small", Wrap: true},
	)
	c.Actions = []Action{{Type: "Action.OpenUrl", Title: "Get an overview", URL: overviewURL}}
	return c
}

// Scheduled confirms an accepted reminder in place of the form.
func Scheduled(req model.ReminderRequest) Card {
	delay := strconv.FormatFloat(req.DelaySeconds, 'f', -1, 64)
	return newCard(Element{
		Type: "TextBlock",
		Text: fmt.Sprintf("Reminder scheduled in %s seconds for %s", delay, req.Mention.Name),
		Size: "Small",
		Wrap: true,
	})
}
