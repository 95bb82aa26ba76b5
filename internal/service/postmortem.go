package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// PostMortemService learns patterns from the real-world metrics of executions.
type PostMortemService struct {
	store   database.Store
	agents  agentcap.Capability
	memory  *MemoryService
	sched   Enqueuer
	hub     broadcast.Broadcaster
	cfg     *config.Holder
	metrics *brotel.Metrics
}

// NewPostMortemService creates a PostMortemService.
func NewPostMortemService(store database.Store, agents agentcap.Capability, memory *MemoryService, sched Enqueuer, hub broadcast.Broadcaster, cfg *config.Holder) *PostMortemService {
	return &PostMortemService{store: store, agents: agents, memory: memory, sched: sched, hub: hub, cfg: cfg}
}

// SetMetrics enables pattern counters.
func (s *PostMortemService) SetMetrics(m *brotel.Metrics) { s.metrics = m }

// RecordMetrics stores externally reported metrics for an execution and
// schedules its post-mortem.
func (s *PostMortemService) RecordMetrics(ctx context.Context, executionID string, m execution.Metrics) (*execution.Execution, error) {
	if err := execution.ValidateMetrics(m); err != nil {
		return nil, err
	}
	exec, err := s.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.store.UpdateExecutionMetrics(ctx, exec.ID, m, now); err != nil {
		return nil, fmt.Errorf("record metrics for %s: %w", exec.ID, err)
	}
	exec.Metrics = m
	exec.MetricsAt = &now

	if err := s.sched.Enqueue(ctx, deliberation.StagePostMortem, exec.ID); err != nil {
		return nil, fmt.Errorf("schedule post-mortem for %s: %w", exec.ID, err)
	}
	slog.InfoContext(ctx, "metrics recorded", "execution_id", exec.ID, "metrics", len(m))
	return exec, nil
}

// Analyze turns an execution's metrics into learned patterns. It runs at most
// once per execution; bad agent output yields zero patterns. The patterns are
// written together, so a failed write stores none and the redelivery retries.
func (s *PostMortemService) Analyze(ctx context.Context, executionID string) error {
	exec, err := s.store.GetExecution(ctx, executionID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "postmortem: execution not found", "execution_id", executionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("postmortem: get execution %s: %w", executionID, err)
	}
	if !exec.HasMetrics() {
		slog.DebugContext(ctx, "postmortem: no metrics yet", "execution_id", exec.ID)
		return nil
	}
	n, err := s.store.CountPatternsForExecution(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("postmortem: count patterns for %s: %w", exec.ID, err)
	}
	if n > 0 {
		slog.DebugContext(ctx, "postmortem: already analyzed", "execution_id", exec.ID, "patterns", n)
		return nil
	}
	rec, err := s.store.GetContent(ctx, exec.PostID)
	if err != nil {
		return fmt.Errorf("postmortem: get post %s: %w", exec.PostID, err)
	}

	cfg := s.cfg.Get()
	req := agentcap.PostMortemRequest{
		Brand:   brandContext(cfg.Brand),
		Title:   rec.Title,
		Body:    rec.Body,
		Brief:   exec.Brief,
		Metrics: exec.Metrics,
	}
	insights, err := callAgent(ctx, cfg.Agent.Timeout, "postmortem", "", func(ctx context.Context) ([]agent.Insight, error) {
		return s.agents.PostMortem(ctx, req)
	})
	if err != nil {
		logAgentFailure(ctx, "postmortem produced no patterns", "postmortem", "", rec.ID, err)
		return nil
	}

	var learned []pattern.LearnedPattern
	for i := range insights {
		p := toPattern(exec.ID, &insights[i])
		if err := p.Validate(); err != nil {
			slog.DebugContext(ctx, "postmortem: insight dropped", "execution_id", exec.ID, "error", err)
			continue
		}
		learned = append(learned, *p)
	}
	slog.InfoContext(ctx, "postmortem complete", "execution_id", exec.ID, "insights", len(insights), "patterns", len(learned))
	if len(learned) == 0 {
		return nil
	}
	if err := s.store.CreatePatterns(ctx, exec.ID, learned); err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			slog.DebugContext(ctx, "postmortem: analyzed concurrently", "execution_id", exec.ID)
			return nil
		}
		return fmt.Errorf("postmortem: %w", err)
	}

	s.memory.Invalidate(ctx)
	s.metrics.PatternLearned(ctx, len(learned))
	s.hub.BroadcastEvent(ctx, broadcast.EventPatternsLearned, broadcast.PatternsEvent{
		ExecutionID: exec.ID,
		Count:       len(learned),
	})
	return nil
}

func toPattern(executionID string, in *agent.Insight) *pattern.LearnedPattern {
	return &pattern.LearnedPattern{
		ID:                uuid.NewString(),
		SourceExecutionID: executionID,
		PatternType:       pattern.Type(strings.ToLower(strings.TrimSpace(in.Type))),
		ContextTag:        strings.TrimSpace(in.Tag),
		Content:           strings.TrimSpace(in.Content),
		Confidence:        in.Confidence,
		CreatedAt:         time.Now().UTC(),
	}
}
