// Package deliberation holds the threshold decision and the explicit state
// machine that moves a pitch through the pipeline.
package deliberation

import (
	"errors"
	"fmt"

	"github.com/Strob0t/Boardroom/internal/domain/content"
)

// Thresholds.
const (
	AcceptScore    = 4
	EscalateScore  = 3
	MaxRejectionAt = 3
)

// ErrInvalidTransition is returned for a (state, event) pair with no table entry.
var ErrInvalidTransition = errors.New("invalid transition")

// Decide maps a tallied score and revision depth to the next status.
// Acceptance is checked first, then the escalation band, then rejection; the
// rejection bar rises with depth and is capped.
func Decide(netScore, depth int) content.Status {
	rejectionThreshold := min(depth, MaxRejectionAt)
	switch {
	case netScore >= AcceptScore:
		return content.StatusAccepted
	case netScore == EscalateScore:
		return content.StatusPendingHuman
	case netScore <= rejectionThreshold:
		return content.StatusRejected
	default:
		return content.StatusNeedsRevision
	}
}

// Event drives a transition.
type Event string

const (
	EventSubmitted       Event = "submitted"
	EventTalliedAccept   Event = "tallied_accept"
	EventTalliedEscalate Event = "tallied_escalate"
	EventTalliedReject   Event = "tallied_reject"
	EventTalliedRevise   Event = "tallied_revise"
	EventStarved         Event = "starved"
	EventHumanAccept     Event = "human_accept"
	EventHumanReject     Event = "human_reject"
	EventExecuted        Event = "executed"
)

// Effect is the side effect owed after a transition commits.
type Effect string

const (
	EffectNone              Effect = ""
	EffectScheduleComment   Effect = "schedule_comment"
	EffectScheduleExecution Effect = "schedule_execution"
	EffectScheduleRevision  Effect = "schedule_revision"
	EffectNotifyHuman       Effect = "notify_human"
)

type key struct {
	from  content.Status
	event Event
}

// Step is the result of a table lookup.
type Step struct {
	From   content.Status `json:"from"`
	Event  Event          `json:"event"`
	To     content.Status `json:"to"`
	Effect Effect         `json:"effect,omitempty"`
}

type target struct {
	to     content.Status
	effect Effect
}

var transitions = map[key]target{
	{content.StatusDraft, EventSubmitted}:           {content.StatusPublished, EffectScheduleComment},
	{content.StatusPublished, EventTalliedAccept}:   {content.StatusAccepted, EffectScheduleExecution},
	{content.StatusPublished, EventTalliedEscalate}: {content.StatusPendingHuman, EffectNotifyHuman},
	{content.StatusPublished, EventTalliedReject}:   {content.StatusRejected, EffectNone},
	{content.StatusPublished, EventTalliedRevise}:   {content.StatusNeedsRevision, EffectScheduleRevision},
	{content.StatusNeedsRevision, EventStarved}:     {content.StatusRejected, EffectNone},
	{content.StatusPendingHuman, EventHumanAccept}:  {content.StatusAccepted, EffectScheduleExecution},
	{content.StatusPendingHuman, EventHumanReject}:  {content.StatusRejected, EffectNone},
	{content.StatusAccepted, EventExecuted}:         {content.StatusProceeding, EffectNone},
}

// Transition looks up (from, event) in the table.
func Transition(from content.Status, ev Event) (Step, error) {
	t, ok := transitions[key{from, ev}]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return Step{From: from, Event: ev, To: t.to, Effect: t.effect}, nil
}

// Owed returns the effect owed to a record resting in status: the effect of
// the transitions that enter it. Statuses with no such effect return
// EffectNone.
func Owed(status content.Status) Effect {
	for k, t := range transitions {
		if t.to == status && k.from != status {
			return t.effect
		}
	}
	return EffectNone
}

// TallyEvent converts a Decide outcome into the event that applies it.
func TallyEvent(outcome content.Status) (Event, error) {
	switch outcome {
	case content.StatusAccepted:
		return EventTalliedAccept, nil
	case content.StatusPendingHuman:
		return EventTalliedEscalate, nil
	case content.StatusRejected:
		return EventTalliedReject, nil
	case content.StatusNeedsRevision:
		return EventTalliedRevise, nil
	default:
		return "", fmt.Errorf("%w: no tally event for %s", ErrInvalidTransition, outcome)
	}
}
