package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
	"github.com/Strob0t/Boardroom/internal/resilience"
)

// RevisionService reworks pitches that deliberation sent back.
type RevisionService struct {
	store  database.Store
	agents agentcap.Capability
	tr     *Transitioner
	sched  Enqueuer
	hub    broadcast.Broadcaster
	notify *NotificationService
	cfg    *config.Holder
}

// NewRevisionService creates a RevisionService. notify may be nil.
func NewRevisionService(store database.Store, agents agentcap.Capability, tr *Transitioner, sched Enqueuer, hub broadcast.Broadcaster, notify *NotificationService, cfg *config.Holder) *RevisionService {
	return &RevisionService{store: store, agents: agents, tr: tr, sched: sched, hub: hub, notify: notify, cfg: cfg}
}

// Revise creates the single child of a needs_revision pitch from the
// critiques collected along its ancestry. No critiques starves the pitch
// into rejected. When every attempt fails the pitch stays in needs_revision.
// A redelivery that finds the child already written reschedules its
// commentary if none was recorded.
func (s *RevisionService) Revise(ctx context.Context, postID string) error {
	rec, err := s.store.GetContent(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "revise: post not found", "post_id", postID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("revise: get post %s: %w", postID, err)
	}
	if rec.Status != content.StatusNeedsRevision {
		slog.DebugContext(ctx, "revise: post not awaiting revision", "post_id", postID, "status", rec.Status)
		return nil
	}
	if child, err := s.store.GetChild(ctx, rec.ID); err == nil {
		slog.DebugContext(ctx, "revise: child already exists", "post_id", rec.ID, "child_id", child.ID)
		return s.tr.Resume(ctx, child)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("revise: get child of %s: %w", rec.ID, err)
	}

	critiques, err := s.store.ListCritiques(ctx, rec.Lineage())
	if err != nil {
		return fmt.Errorf("revise: list critiques for %s: %w", rec.ID, err)
	}
	if len(critiques) == 0 {
		slog.InfoContext(ctx, "revise: no critiques in ancestry, rejecting", "post_id", rec.ID, "depth", rec.Depth())
		_, err := s.tr.Apply(ctx, rec, deliberation.EventStarved)
		return err
	}

	cfg := s.cfg.Get()
	deny, err := s.store.RecentAcceptedTitles(ctx, cfg.Revision.DenyListSize)
	if err != nil {
		slog.WarnContext(ctx, "revise: deny list unavailable", "error", err)
		deny = nil
	}
	notes := make([]string, len(critiques))
	for i := range critiques {
		notes[i] = critiques[i].Body
	}
	req := agentcap.RevisionRequest{
		Brand:      brandContext(cfg.Brand),
		Title:      rec.Title,
		FailedBody: rec.Body,
		Critiques:  notes,
		DenyTitles: deny,
	}
	author := profileFor(cfg.Panel, rec.AuthorAgentID)

	retry := resilience.NewFixedRetry[agent.Draft](cfg.Revision.Retries, cfg.Revision.RetryDelay, func(attempt int, err error) {
		slog.WarnContext(ctx, "revise: attempt failed, retrying", "post_id", rec.ID, "attempt", attempt, "error", err)
	})
	draft, err := retry.Do(ctx, func(ctx context.Context) (agent.Draft, error) {
		return callAgent(ctx, cfg.Agent.Timeout, "revise", author.ID, func(ctx context.Context) (agent.Draft, error) {
			return s.agents.ReviseBody(ctx, author, req)
		})
	})
	if err != nil {
		logAgentFailure(ctx, "revision stalled", "revise", author.ID, rec.ID, err)
		if s.notify != nil {
			s.notify.Notify(ctx, notifier.Notification{
				Title:   "Revision stalled",
				Message: fmt.Sprintf("%q could not be revised after %d attempts.", rec.Title, cfg.Revision.Retries+1),
				Level:   notifier.LevelError,
				Source:  SourceRevisionStall,
				PostID:  rec.ID,
				Facts: []notifier.Fact{
					{Label: "Attempts", Value: strconv.Itoa(cfg.Revision.Retries + 1)},
					{Label: "Critiques", Value: strconv.Itoa(len(critiques))},
				},
			})
		}
		return nil
	}

	child, err := rec.NewRevision(uuid.NewString(), draft.Title, draft.Body, time.Now().UTC())
	if err != nil {
		slog.WarnContext(ctx, "revise: unusable draft", "post_id", rec.ID, "error", err)
		return nil
	}
	if err := s.store.CreateRevision(ctx, child); err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) || errors.Is(err, domain.ErrConflict) {
			slog.DebugContext(ctx, "revise: lost race for child", "post_id", rec.ID)
			return nil
		}
		return fmt.Errorf("revise: create child of %s: %w", rec.ID, err)
	}

	slog.InfoContext(ctx, "pitch revised",
		"post_id", child.ID,
		"parent_id", rec.ID,
		"revision", child.RevisionNumber,
		"critiques", len(critiques),
	)
	s.hub.BroadcastEvent(ctx, broadcast.EventPitchRevised, broadcast.PitchEvent{
		PostID:         child.ID,
		RootID:         child.RootID(),
		ParentID:       rec.ID,
		Title:          child.Title,
		Status:         string(child.Status),
		RevisionNumber: child.RevisionNumber,
	})
	if err := s.sched.Enqueue(ctx, deliberation.StageComment, child.ID); err != nil {
		return fmt.Errorf("revise: schedule commentary for %s: %w", child.ID, err)
	}
	return nil
}
