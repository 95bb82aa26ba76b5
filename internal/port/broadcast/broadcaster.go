// Package broadcast defines the port for publishing pipeline events to
// connected clients.
package broadcast

import "context"

// Event types published by the pipeline.
const (
	EventPitchCreated     = "pitch.created"
	EventPitchTransition  = "pitch.transition"
	EventPitchRevised     = "pitch.revised"
	EventVotesTallied     = "votes.tallied"
	EventCommentsAdded    = "comments.added"
	EventExecutionCreated = "execution.created"
	EventAssetStored      = "execution.asset_stored"
	EventPatternsLearned  = "patterns.learned"
)

// Broadcaster sends events to all connected clients. Delivery is best effort
// and callers never inspect the outcome.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
