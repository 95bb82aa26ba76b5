// Package slack posts pitch notifications to a Slack incoming webhook as
// Block Kit messages.
package slack

import (
	"context"
	"fmt"

	"github.com/Strob0t/Boardroom/internal/adapter/webhook"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

const providerName = "slack"

// Notifier sends notifications to one Slack channel.
type Notifier struct {
	hook *webhook.Poster
}

// NewNotifier creates a Slack notifier for webhookURL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{hook: webhook.New(webhookURL)}
}

func (n *Notifier) Name() string { return providerName }

type message struct {
	Text   string  `json:"text"` // fallback for clients without blocks
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Fields   []text `json:"fields,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, note notifier.Notification) error {
	if !n.hook.Configured() {
		return notifier.ErrNotConfigured
	}
	if err := n.hook.Post(ctx, render(note)); err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	return nil
}

// render lays a notification out as header, message, facts, then a context
// line naming the pitch and event.
func render(note notifier.Notification) message {
	header := levelEmoji(note.Level) + " " + note.Title
	msg := message{
		Text: header,
		Blocks: []block{
			{Type: "header", Text: &text{Type: "plain_text", Text: header}},
			{Type: "section", Text: &text{Type: "mrkdwn", Text: note.Message}},
		},
	}
	if len(note.Facts) > 0 {
		fields := make([]text, 0, len(note.Facts))
		for _, f := range note.Facts {
			fields = append(fields, text{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", f.Label, f.Value)})
		}
		msg.Blocks = append(msg.Blocks, block{Type: "section", Fields: fields})
	}
	if note.PostID != "" || note.Source != "" {
		msg.Blocks = append(msg.Blocks, block{Type: "context", Elements: []text{
			{Type: "mrkdwn", Text: fmt.Sprintf("pitch `%s` · %s", note.PostID, note.Source)},
		}})
	}
	return msg
}

func levelEmoji(l notifier.Level) string {
	switch l {
	case notifier.LevelError:
		return ":rotating_light:"
	case notifier.LevelWarning:
		return ":raised_hand:"
	default:
		return ":speech_balloon:"
	}
}
