package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// DeliberationService turns a tallied score into the next pipeline status.
type DeliberationService struct {
	store database.Store
	tr    *Transitioner
}

// NewDeliberationService creates a DeliberationService.
func NewDeliberationService(store database.Store, tr *Transitioner) *DeliberationService {
	return &DeliberationService{store: store, tr: tr}
}

// Deliberate decides a published pitch from its full vote set and revision
// depth. A redelivery finds the pitch already moved and only resumes the
// stage its new status still owes.
func (s *DeliberationService) Deliberate(ctx context.Context, postID string) error {
	rec, err := s.store.GetContent(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "deliberate: post not found", "post_id", postID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deliberate: get post %s: %w", postID, err)
	}
	if rec.Status != content.StatusPublished {
		slog.DebugContext(ctx, "deliberate: already decided", "post_id", postID, "status", rec.Status)
		return s.tr.Resume(ctx, rec)
	}

	votes, err := s.store.ListVotes(ctx, vote.VotableContent, rec.ID)
	if err != nil {
		return fmt.Errorf("deliberate: list votes for %s: %w", rec.ID, err)
	}
	rec.NetScore = vote.NetScore(votes)

	outcome := deliberation.Decide(rec.NetScore, rec.Depth())
	ev, err := deliberation.TallyEvent(outcome)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "deliberated",
		"post_id", rec.ID,
		"net_score", rec.NetScore,
		"depth", rec.Depth(),
		"outcome", outcome,
	)
	_, err = s.tr.Apply(ctx, rec, ev)
	return err
}

// HumanDecision resolves a pending_human pitch. Any other status returns
// domain.ErrConflict.
func (s *DeliberationService) HumanDecision(ctx context.Context, postID string, accept bool) (*content.ContentRecord, error) {
	rec, err := s.store.GetContent(ctx, postID)
	if err != nil {
		return nil, err
	}
	if rec.Status != content.StatusPendingHuman {
		return nil, fmt.Errorf("%w: post %s is %s, not %s", domain.ErrConflict, rec.ID, rec.Status, content.StatusPendingHuman)
	}

	ev := deliberation.EventHumanReject
	if accept {
		ev = deliberation.EventHumanAccept
	}
	applied, err := s.tr.Apply(ctx, rec, ev)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: post %s was decided concurrently", domain.ErrConflict, rec.ID)
	}
	return rec, nil
}
