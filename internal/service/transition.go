package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

// Transitioner applies state machine events to content records and runs the
// effect each transition owes.
type Transitioner struct {
	store   database.Store
	sched   Enqueuer
	hub     broadcast.Broadcaster
	notify  *NotificationService
	metrics *brotel.Metrics
}

// NewTransitioner creates a Transitioner. notify may be nil.
func NewTransitioner(store database.Store, sched Enqueuer, hub broadcast.Broadcaster, notify *NotificationService) *Transitioner {
	return &Transitioner{store: store, sched: sched, hub: hub, notify: notify}
}

// SetMetrics enables decision counters.
func (t *Transitioner) SetMetrics(m *brotel.Metrics) { t.metrics = m }

// Apply moves rec along ev with a compare-and-set on its current status.
// It reports false when another delivery already moved the record, in which
// case no effect runs. On success rec.Status holds the new status.
func (t *Transitioner) Apply(ctx context.Context, rec *content.ContentRecord, ev deliberation.Event) (bool, error) {
	step, err := deliberation.Transition(rec.Status, ev)
	if err != nil {
		return false, err
	}
	if err := t.store.CompareAndSetStatus(ctx, rec.ID, step.From, step.To); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.DebugContext(ctx, "transition lost", "post_id", rec.ID, "event", ev, "from", step.From)
			return false, nil
		}
		return false, fmt.Errorf("transition %s on %s: %w", ev, rec.ID, err)
	}
	rec.Status = step.To

	slog.InfoContext(ctx, "pitch transitioned",
		"post_id", rec.ID,
		"from", step.From,
		"to", step.To,
		"event", ev,
	)
	t.hub.BroadcastEvent(ctx, broadcast.EventPitchTransition, broadcast.TransitionEvent{
		PostID: rec.ID,
		RootID: rec.RootID(),
		From:   string(step.From),
		To:     string(step.To),
		Event:  string(ev),
	})
	if step.From == content.StatusPublished || step.From == content.StatusPendingHuman {
		t.metrics.Decision(ctx, string(step.To))
	}

	return true, t.runEffect(ctx, rec, step)
}

// Resume re-runs the stage owed to rec's current status when nothing
// downstream shows it ran: no execution for accepted, no child for
// needs_revision, no comments for published. Redelivered stages call it so an
// enqueue that failed after the status committed is not lost. Human
// notifications are not repeated.
func (t *Transitioner) Resume(ctx context.Context, rec *content.ContentRecord) error {
	_, err := t.resume(ctx, rec)
	return err
}

// resumable are the statuses whose entering transition schedules a stage.
var resumable = []content.Status{
	content.StatusPublished,
	content.StatusNeedsRevision,
	content.StatusAccepted,
}

// ResumeStalled runs Resume over up to limit records in a resumable status
// and returns how many were rescheduled. It covers stages lost when the
// process stopped between a status write and its enqueue, or when the first
// enqueue of a new pitch failed. Per-record failures are logged and skipped.
func (t *Transitioner) ResumeStalled(ctx context.Context, limit int) (int, error) {
	recs, err := t.store.ListContentByStatus(ctx, resumable, limit)
	if err != nil {
		return 0, fmt.Errorf("resume stalled: %w", err)
	}
	n := 0
	for i := range recs {
		ok, err := t.resume(ctx, &recs[i])
		if err != nil {
			slog.WarnContext(ctx, "resume failed", "post_id", recs[i].ID, "status", recs[i].Status, "error", err)
			continue
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (t *Transitioner) resume(ctx context.Context, rec *content.ContentRecord) (bool, error) {
	effect := deliberation.Owed(rec.Status)
	stage, ok := deliberation.EffectStage(effect)
	if !ok {
		return false, nil
	}
	ran, err := t.effectRan(ctx, rec, effect)
	if err != nil {
		return false, fmt.Errorf("resume %s: %w", rec.ID, err)
	}
	if ran {
		return false, nil
	}
	slog.InfoContext(ctx, "resuming owed stage", "post_id", rec.ID, "status", rec.Status, "owed_stage", stage)
	if err := t.sched.Enqueue(ctx, stage, rec.ID); err != nil {
		return false, fmt.Errorf("schedule %s for %s: %w", stage, rec.ID, err)
	}
	return true, nil
}

func (t *Transitioner) effectRan(ctx context.Context, rec *content.ContentRecord, effect deliberation.Effect) (bool, error) {
	var err error
	switch effect {
	case deliberation.EffectScheduleExecution:
		_, err = t.store.GetExecutionByPost(ctx, rec.ID)
	case deliberation.EffectScheduleRevision:
		_, err = t.store.GetChild(ctx, rec.ID)
	case deliberation.EffectScheduleComment:
		comments, listErr := t.store.ListComments(ctx, rec.ID)
		return len(comments) > 0, listErr
	default:
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *Transitioner) runEffect(ctx context.Context, rec *content.ContentRecord, step deliberation.Step) error {
	if step.Effect == deliberation.EffectNotifyHuman {
		if t.notify != nil {
			t.notify.Notify(ctx, notifier.Notification{
				Title:   "Pitch needs a human decision",
				Message: fmt.Sprintf("%q scored %d and is waiting for accept or reject.", rec.Title, rec.NetScore),
				Level:   notifier.LevelWarning,
				Source:  SourcePendingHuman,
				PostID:  rec.ID,
				Facts: []notifier.Fact{
					{Label: "Score", Value: strconv.Itoa(rec.NetScore)},
					{Label: "Revision", Value: strconv.Itoa(rec.RevisionNumber)},
				},
			})
		}
		return nil
	}
	stage, ok := deliberation.EffectStage(step.Effect)
	if !ok {
		return nil
	}
	if err := t.sched.Enqueue(ctx, stage, rec.ID); err != nil {
		return fmt.Errorf("schedule %s for %s: %w", stage, rec.ID, err)
	}
	return nil
}
