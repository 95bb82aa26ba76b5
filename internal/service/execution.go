package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// DefaultPlatform is used when the persona context names no platform.
const DefaultPlatform = "social"

// ExecutionService turns accepted pitches into briefs and assets.
type ExecutionService struct {
	store  database.Store
	agents agentcap.Capability
	tr     *Transitioner
	sched  Enqueuer
	hub    broadcast.Broadcaster
	cfg    *config.Holder
	images agentcap.AssetGenerator
	assets agentcap.AssetStore
}

// NewExecutionService creates an ExecutionService.
func NewExecutionService(store database.Store, agents agentcap.Capability, tr *Transitioner, sched Enqueuer, hub broadcast.Broadcaster, cfg *config.Holder) *ExecutionService {
	return &ExecutionService{store: store, agents: agents, tr: tr, sched: sched, hub: hub, cfg: cfg}
}

// SetAssets enables the asset stage.
func (s *ExecutionService) SetAssets(images agentcap.AssetGenerator, assets agentcap.AssetStore) {
	s.images = images
	s.assets = assets
}

// Execute requests a creative brief for an accepted pitch, stores a single
// execution, schedules asset generation and moves the pitch to proceeding.
// Brief failures are logged and leave the pitch accepted.
func (s *ExecutionService) Execute(ctx context.Context, postID string) error {
	rec, err := s.store.GetContent(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "execute: post not found", "post_id", postID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("execute: get post %s: %w", postID, err)
	}
	if rec.Status != content.StatusAccepted {
		slog.DebugContext(ctx, "execute: post not accepted", "post_id", postID, "status", rec.Status)
		return nil
	}

	exec, err := s.store.GetExecutionByPost(ctx, rec.ID)
	switch {
	case err == nil:
		slog.DebugContext(ctx, "execute: execution already exists", "post_id", rec.ID, "execution_id", exec.ID)
	case errors.Is(err, domain.ErrNotFound):
		exec, err = s.createExecution(ctx, rec)
		if err != nil || exec == nil {
			return err
		}
	default:
		return fmt.Errorf("execute: get execution for %s: %w", rec.ID, err)
	}

	_, err = s.tr.Apply(ctx, rec, deliberation.EventExecuted)
	return err
}

func (s *ExecutionService) createExecution(ctx context.Context, rec *content.ContentRecord) (*execution.Execution, error) {
	cfg := s.cfg.Get()
	req := agentcap.BriefRequest{
		Brand:          brandContext(cfg.Brand),
		Title:          rec.Title,
		Body:           rec.Body,
		Archetype:      rec.ContentArchetype,
		PersonaContext: rec.PersonaContext,
	}
	brief, err := callAgent(ctx, cfg.Agent.Timeout, "brief", "", func(ctx context.Context) (agent.Brief, error) {
		return s.agents.Brief(ctx, req)
	})
	if err != nil {
		logAgentFailure(ctx, "brief failed", "execute", "", rec.ID, err)
		return nil, nil
	}

	platform := rec.PersonaContext["platform"]
	if platform == "" {
		platform = DefaultPlatform
	}
	exec := &execution.Execution{
		ID:         uuid.NewString(),
		PostID:     rec.ID,
		Platform:   platform,
		Brief:      brief,
		Metrics:    execution.Metrics{},
		ExecutedAt: time.Now().UTC(),
	}
	if err := s.store.CreateExecution(ctx, exec); err != nil {
		if !errors.Is(err, domain.ErrConstraintViolation) {
			return nil, fmt.Errorf("execute: create execution for %s: %w", rec.ID, err)
		}
		return s.store.GetExecutionByPost(ctx, rec.ID)
	}

	slog.InfoContext(ctx, "execution created", "post_id", rec.ID, "execution_id", exec.ID, "platform", platform)
	s.hub.BroadcastEvent(ctx, broadcast.EventExecutionCreated, broadcast.ExecutionEvent{
		ExecutionID: exec.ID,
		PostID:      rec.ID,
		RootID:      rec.RootID(),
	})
	if exec.WantsAsset() {
		if err := s.sched.Enqueue(ctx, deliberation.StageAsset, exec.ID); err != nil {
			slog.WarnContext(ctx, "asset stage not scheduled", "execution_id", exec.ID, "error", err)
		}
	}
	return exec, nil
}

// GenerateAsset renders the brief's image prompt and stores the result.
// An empty render is a logged no-op.
func (s *ExecutionService) GenerateAsset(ctx context.Context, executionID string) error {
	if s.images == nil || s.assets == nil {
		slog.DebugContext(ctx, "asset: generation disabled", "execution_id", executionID)
		return nil
	}
	exec, err := s.store.GetExecution(ctx, executionID)
	if errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "asset: execution not found", "execution_id", executionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("asset: get execution %s: %w", executionID, err)
	}
	if !exec.WantsAsset() {
		return nil
	}

	timeout := s.cfg.Get().Agent.Timeout
	data, err := callAgent(ctx, timeout, "image", "", func(ctx context.Context) ([]byte, error) {
		return s.images.GenerateImage(ctx, exec.Brief.ImagePrompt)
	})
	if err != nil {
		slog.WarnContext(ctx, "asset: generation failed", "execution_id", exec.ID, "error", err)
		return nil
	}
	if len(data) == 0 {
		slog.InfoContext(ctx, "asset: nothing returned", "execution_id", exec.ID)
		return nil
	}

	key := AssetKey(exec.ID)
	if err := s.assets.PutAsset(ctx, key, data, http.DetectContentType(data)); err != nil {
		return fmt.Errorf("asset: store %s: %w", key, err)
	}
	if err := s.store.UpdateExecutionAsset(ctx, exec.ID, key); err != nil {
		return fmt.Errorf("asset: record %s: %w", key, err)
	}
	slog.InfoContext(ctx, "asset stored", "execution_id", exec.ID, "asset_key", key, "bytes", len(data))
	s.hub.BroadcastEvent(ctx, broadcast.EventAssetStored, broadcast.ExecutionEvent{
		ExecutionID: exec.ID,
		PostID:      exec.PostID,
		AssetKey:    key,
	})
	return nil
}

// AssetKey is the object store key of an execution's generated asset.
func AssetKey(executionID string) string {
	return "executions/" + executionID
}

// Get returns an execution by id.
func (s *ExecutionService) Get(ctx context.Context, id string) (*execution.Execution, error) {
	return s.store.GetExecution(ctx, id)
}

// Asset returns the stored asset bytes of an execution.
func (s *ExecutionService) Asset(ctx context.Context, id string) ([]byte, error) {
	exec, err := s.store.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if exec.AssetKey == "" || s.assets == nil {
		return nil, fmt.Errorf("asset for execution %s: %w", id, domain.ErrNotFound)
	}
	return s.assets.GetAsset(ctx, exec.AssetKey)
}
