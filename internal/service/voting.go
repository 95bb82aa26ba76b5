package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// VotingService collects panel verdicts and keeps net scores current.
type VotingService struct {
	store   database.Store
	agents  agentcap.Capability
	sched   Enqueuer
	hub     broadcast.Broadcaster
	cfg     *config.Holder
	metrics *brotel.Metrics
}

// NewVotingService creates a VotingService.
func NewVotingService(store database.Store, agents agentcap.Capability, sched Enqueuer, hub broadcast.Broadcaster, cfg *config.Holder) *VotingService {
	return &VotingService{store: store, agents: agents, sched: sched, hub: hub, cfg: cfg}
}

// SetMetrics enables vote counters.
func (s *VotingService) SetMetrics(m *brotel.Metrics) { s.metrics = m }

// VotePost runs the panel vote on a published pitch and hands it to
// deliberation.
func (s *VotingService) VotePost(ctx context.Context, postID string) error {
	rec, err := s.store.GetContent(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "vote: post not found", "post_id", postID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("vote: get post %s: %w", postID, err)
	}
	if rec.Status != content.StatusPublished {
		slog.DebugContext(ctx, "vote: post no longer published", "post_id", postID, "status", rec.Status)
		return nil
	}

	cfg := s.cfg.Get()
	ref := vote.Ref{Type: vote.VotableContent, ID: rec.ID, AuthorAgentID: rec.AuthorAgentID}
	score, n, err := s.CastVotes(ctx, ref, pitchSubject(rec, &cfg))
	if err != nil {
		return err
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventVotesTallied, broadcast.TallyEvent{
		VotableType: string(ref.Type),
		VotableID:   rec.ID,
		RootID:      rec.RootID(),
		Votes:       n,
		NetScore:    score,
	})

	if err := s.sched.Enqueue(ctx, deliberation.StageDeliberate, rec.ID); err != nil {
		return fmt.Errorf("vote: schedule deliberation for %s: %w", rec.ID, err)
	}
	return nil
}

// VoteComment runs the panel vote on one comment. Comment scores never feed
// deliberation.
func (s *VotingService) VoteComment(ctx context.Context, commentID string) error {
	c, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "vote: comment not found", "comment_id", commentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("vote: get comment %s: %w", commentID, err)
	}
	rec, err := s.store.GetContent(ctx, c.PostID)
	if err != nil {
		return fmt.Errorf("vote: get post %s: %w", c.PostID, err)
	}

	cfg := s.cfg.Get()
	subject := pitchSubject(rec, &cfg)
	subject.Kind = "comment"
	subject.Body = c.Body

	ref := vote.Ref{Type: vote.VotableComment, ID: c.ID, AuthorAgentID: c.AuthorAgentID}
	score, n, err := s.CastVotes(ctx, ref, subject)
	if err != nil {
		return err
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventVotesTallied, broadcast.TallyEvent{
		VotableType: string(ref.Type),
		VotableID:   c.ID,
		RootID:      rec.RootID(),
		Votes:       n,
		NetScore:    score,
	})
	return nil
}

// CastVotes asks every eligible agent for a verdict on ref and persists one
// vote each. Agents that fail, return garbage, or already voted are skipped.
// After all agents have been tried the net score is recomputed from every
// stored vote and persisted. It returns the score and the vote count.
func (s *VotingService) CastVotes(ctx context.Context, ref vote.Ref, subject agentcap.Subject) (score, votes int, err error) {
	cfg := s.cfg.Get()
	voters := cfg.Panel.Roster.Except(ref.AuthorAgentID)

	var g errgroup.Group
	g.SetLimit(parallelism(cfg.Panel))
	for _, voter := range voters {
		g.Go(func() error {
			s.castAgentVote(ctx, ref, subject, voter, cfg.Agent.Timeout)
			return nil
		})
	}
	_ = g.Wait()

	return s.recompute(ctx, ref)
}

func (s *VotingService) castAgentVote(ctx context.Context, ref vote.Ref, subject agentcap.Subject, voter agent.Profile, timeout time.Duration) {
	verdict, err := callAgent(ctx, timeout, "evaluate", voter.ID, func(ctx context.Context) (agent.Verdict, error) {
		return s.agents.Evaluate(ctx, voter, subject)
	})
	if err != nil {
		logAgentFailure(ctx, "vote skipped", "vote", voter.ID, ref.ID, err)
		return
	}

	v, err := vote.New(uuid.NewString(), ref, voter.ID, vote.VoterAgent, vote.Direction(verdict.Direction), time.Now().UTC())
	if err != nil {
		slog.WarnContext(ctx, "vote rejected", "agent_id", voter.ID, "votable_id", ref.ID, "error", err)
		return
	}
	if err := s.store.CreateVote(ctx, v); err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			slog.DebugContext(ctx, "duplicate vote ignored", "agent_id", voter.ID, "votable_id", ref.ID)
			return
		}
		slog.WarnContext(ctx, "vote write failed", "agent_id", voter.ID, "votable_id", ref.ID, "error", err)
		return
	}
	s.metrics.VoteCast(ctx, string(ref.Type), string(vote.VoterAgent))
}

// CastHumanVote stores a human verdict on a pitch and recomputes its score.
// It does not trigger deliberation. A second vote by the same human returns
// domain.ErrConstraintViolation.
func (s *VotingService) CastHumanVote(ctx context.Context, postID, humanID string, dir vote.Direction) (int, error) {
	rec, err := s.store.GetContent(ctx, postID)
	if err != nil {
		return 0, err
	}
	ref := vote.Ref{Type: vote.VotableContent, ID: rec.ID, AuthorAgentID: rec.AuthorAgentID}
	v, err := vote.New(uuid.NewString(), ref, humanID, vote.VoterHuman, dir, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := s.store.CreateVote(ctx, v); err != nil {
		return 0, err
	}
	s.metrics.VoteCast(ctx, string(ref.Type), string(vote.VoterHuman))

	score, n, err := s.recompute(ctx, ref)
	if err != nil {
		return 0, err
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventVotesTallied, broadcast.TallyEvent{
		VotableType: string(ref.Type),
		VotableID:   rec.ID,
		RootID:      rec.RootID(),
		Votes:       n,
		NetScore:    score,
	})
	return score, nil
}

// recompute aggregates the full vote set; the cached score is never incremented.
func (s *VotingService) recompute(ctx context.Context, ref vote.Ref) (score, votes int, err error) {
	all, err := s.store.ListVotes(ctx, ref.Type, ref.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list votes for %s: %w", ref.ID, err)
	}
	score = vote.NetScore(all)

	switch ref.Type {
	case vote.VotableComment:
		err = s.store.UpdateCommentScore(ctx, ref.ID, score)
	default:
		err = s.store.UpdateContentScore(ctx, ref.ID, score)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("update score for %s: %w", ref.ID, err)
	}
	slog.InfoContext(ctx, "votes tallied", "votable_type", ref.Type, "votable_id", ref.ID, "votes", len(all), "net_score", score)
	return score, len(all), nil
}
