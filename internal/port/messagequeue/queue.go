// Package messagequeue defines the message queue port (interface) that
// carries pipeline stages between workers.
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
// A non-nil error asks the queue to redeliver the message.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	// Pending messages are processed; no new messages are accepted.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// SubjectPrefix is the root of every pipeline subject. The stream binds
// SubjectPrefix + ".>".
const SubjectPrefix = "pipeline"

// Pipeline stage subjects.
const (
	SubjectComment     = SubjectPrefix + ".comment"
	SubjectVote        = SubjectPrefix + ".vote"
	SubjectVoteComment = SubjectPrefix + ".vote_comment"
	SubjectDeliberate  = SubjectPrefix + ".deliberate"
	SubjectRevise      = SubjectPrefix + ".revise"
	SubjectExecute     = SubjectPrefix + ".execute"
	SubjectAsset       = SubjectPrefix + ".asset"
	SubjectPostMortem  = SubjectPrefix + ".postmortem"
)

// StageSubject returns the subject for a stage name such as "vote".
func StageSubject(stage string) string {
	return SubjectPrefix + "." + stage
}
