// Package discord posts pitch notifications to a Discord webhook as embeds.
package discord

import (
	"context"
	"fmt"

	"github.com/Strob0t/Boardroom/internal/adapter/webhook"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

const providerName = "discord"

func init() {
	notifier.Register(providerName, func(url string) notifier.Notifier { return NewNotifier(url) })
}

// Embed colors per level.
const (
	colorInfo    = 0x5865F2
	colorWarning = 0xFEE75C
	colorError   = 0xED4245
)

// Notifier sends notifications to one Discord channel.
type Notifier struct {
	hook *webhook.Poster
}

// NewNotifier creates a Discord notifier for webhookURL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{hook: webhook.New(webhookURL)}
}

func (n *Notifier) Name() string { return providerName }

type payload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Footer      *footer `json:"footer,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, note notifier.Notification) error {
	if !n.hook.Configured() {
		return notifier.ErrNotConfigured
	}
	if err := n.hook.Post(ctx, payload{Username: "Boardroom", Embeds: []embed{toEmbed(note)}}); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func toEmbed(note notifier.Notification) embed {
	e := embed{Title: note.Title, Description: note.Message, Color: colorFor(note.Level)}
	for _, f := range note.Facts {
		e.Fields = append(e.Fields, field{Name: f.Label, Value: f.Value, Inline: true})
	}
	if note.PostID != "" {
		e.Footer = &footer{Text: "pitch " + note.PostID + " · " + note.Source}
	}
	return e
}

func colorFor(l notifier.Level) int {
	switch l {
	case notifier.LevelError:
		return colorError
	case notifier.LevelWarning:
		return colorWarning
	default:
		return colorInfo
	}
}
