package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/comment"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// CommentaryService gathers strategy notes and critiques from the panel.
type CommentaryService struct {
	store   database.Store
	agents  agentcap.Capability
	sched   Enqueuer
	hub     broadcast.Broadcaster
	cfg     *config.Holder
	metrics *brotel.Metrics
}

// NewCommentaryService creates a CommentaryService.
func NewCommentaryService(store database.Store, agents agentcap.Capability, sched Enqueuer, hub broadcast.Broadcaster, cfg *config.Holder) *CommentaryService {
	return &CommentaryService{store: store, agents: agents, sched: sched, hub: hub, cfg: cfg}
}

// SetMetrics enables comment counters.
func (s *CommentaryService) SetMetrics(m *brotel.Metrics) { s.metrics = m }

// Comment asks every agent except the author for a pro/con pair on a
// published pitch, stores the non-empty sides, and schedules voting.
// Re-running it for the same post adds nothing new.
func (s *CommentaryService) Comment(ctx context.Context, postID string) error {
	rec, err := s.store.GetContent(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "comment: post not found", "post_id", postID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("comment: get post %s: %w", postID, err)
	}
	if rec.Status != content.StatusPublished {
		slog.DebugContext(ctx, "comment: post no longer published", "post_id", postID, "status", rec.Status)
		return nil
	}

	cfg := s.cfg.Get()
	subject := pitchSubject(rec, &cfg)

	var (
		mu      sync.Mutex
		created []comment.Comment
		g       errgroup.Group
	)
	g.SetLimit(parallelism(cfg.Panel))
	for _, critic := range cfg.Panel.Roster.Except(rec.AuthorAgentID) {
		g.Go(func() error {
			added := s.critique(ctx, rec, subject, critic, cfg.Agent.Timeout)
			mu.Lock()
			created = append(created, added...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	strategy := 0
	for i := range created {
		if created[i].Type == comment.TypeStrategy {
			strategy++
		}
	}
	slog.InfoContext(ctx, "commentary collected", "post_id", rec.ID, "comments", len(created))
	s.hub.BroadcastEvent(ctx, broadcast.EventCommentsAdded, broadcast.CommentsEvent{
		PostID:    rec.ID,
		RootID:    rec.RootID(),
		Strategy:  strategy,
		Critiques: len(created) - strategy,
	})

	if err := s.sched.Enqueue(ctx, deliberation.StageVote, rec.ID); err != nil {
		return fmt.Errorf("comment: schedule vote for %s: %w", rec.ID, err)
	}
	if cfg.Panel.VoteOnComments {
		for i := range created {
			if err := s.sched.Enqueue(ctx, deliberation.StageVoteComment, created[i].ID); err != nil {
				slog.WarnContext(ctx, "comment vote not scheduled", "comment_id", created[i].ID, "error", err)
			}
		}
	}
	return nil
}

func (s *CommentaryService) critique(ctx context.Context, rec *content.ContentRecord, subject agentcap.Subject, critic agent.Profile, timeout time.Duration) []comment.Comment {
	crit, err := callAgent(ctx, timeout, "critique", critic.ID, func(ctx context.Context) (agent.Critique, error) {
		return s.agents.Critique(ctx, critic, subject)
	})
	if err != nil {
		logAgentFailure(ctx, "critique skipped", "comment", critic.ID, rec.ID, err)
		return nil
	}
	if crit.Empty() {
		slog.DebugContext(ctx, "agent had nothing to say", "agent_id", critic.ID, "post_id", rec.ID)
		return nil
	}

	var out []comment.Comment
	for _, side := range []struct {
		typ  comment.Type
		body string
	}{
		{comment.TypeStrategy, crit.Pro},
		{comment.TypeCritique, crit.Con},
	} {
		if side.body == "" {
			continue
		}
		c, err := comment.New(uuid.NewString(), rec.ID, rec.AuthorAgentID, critic.ID, side.typ, side.body, time.Now().UTC())
		if err != nil {
			slog.WarnContext(ctx, "comment rejected", "agent_id", critic.ID, "post_id", rec.ID, "error", err)
			continue
		}
		if err := s.store.CreateComment(ctx, c); err != nil {
			if errors.Is(err, domain.ErrConstraintViolation) {
				slog.DebugContext(ctx, "duplicate comment ignored", "agent_id", critic.ID, "post_id", rec.ID, "type", side.typ)
				continue
			}
			slog.WarnContext(ctx, "comment write failed", "agent_id", critic.ID, "post_id", rec.ID, "error", err)
			continue
		}
		s.metrics.CommentCreated(ctx, string(side.typ))
		out = append(out, *c)
	}
	return out
}
