// Package notifier is the outbound sink for pitch events that need a person:
// escalations to a human decision and stalled revisions.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a notifier that has no webhook URL.
var ErrNotConfigured = errors.New("notifier: webhook url not set")

// Level sets how urgently a chat client renders a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Fact is one labelled detail shown next to the message, such as a score.
type Fact struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Notification is the payload sent through a Notifier.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   Level  `json:"level"`
	Source  string `json:"source"` // e.g. "pitch.pending_human"
	PostID  string `json:"post_id,omitempty"`
	Facts   []Fact `json:"facts,omitempty"`
}

// Notifier delivers notifications to one chat provider.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
