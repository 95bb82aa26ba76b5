package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/comment"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// GenerateRequest asks the panel's author for a fresh pitch.
type GenerateRequest struct {
	AuthorAgentID  string            `json:"author_agent_id"`
	Archetype      string            `json:"content_archetype"`
	Goal           string            `json:"goal"`
	PersonaContext map[string]string `json:"persona_context"`
}

// PitchService creates root pitches and serves reads on revision trees.
type PitchService struct {
	store  database.Store
	agents agentcap.Capability
	tr     *Transitioner
	memory *MemoryService
	hub    broadcast.Broadcaster
	cfg    *config.Holder
}

// NewPitchService creates a PitchService.
func NewPitchService(store database.Store, agents agentcap.Capability, tr *Transitioner, memory *MemoryService, hub broadcast.Broadcaster, cfg *config.Holder) *PitchService {
	return &PitchService{store: store, agents: agents, tr: tr, memory: memory, hub: hub, cfg: cfg}
}

// Create stores a root pitch and submits it into the pipeline. An empty
// author falls back to the configured default author.
func (s *PitchService) Create(ctx context.Context, req *content.CreateRequest) (*content.ContentRecord, error) {
	if req.AuthorAgentID == "" {
		req.AuthorAgentID = s.cfg.Get().Panel.DefaultAuthor
	}
	rec, err := content.NewRoot(uuid.NewString(), req, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateContent(ctx, rec); err != nil {
		return nil, fmt.Errorf("create pitch: %w", err)
	}
	slog.InfoContext(ctx, "pitch created", "post_id", rec.ID, "author_agent_id", rec.AuthorAgentID)
	s.hub.BroadcastEvent(ctx, broadcast.EventPitchCreated, broadcast.PitchEvent{
		PostID:         rec.ID,
		RootID:         rec.ID,
		Title:          rec.Title,
		Status:         string(rec.Status),
		RevisionNumber: rec.RevisionNumber,
	})

	if err := s.Submit(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Submit publishes a draft, which schedules commentary.
func (s *PitchService) Submit(ctx context.Context, rec *content.ContentRecord) error {
	applied, err := s.tr.Apply(ctx, rec, deliberation.EventSubmitted)
	if err != nil {
		return fmt.Errorf("submit %s: %w", rec.ID, err)
	}
	if !applied {
		return fmt.Errorf("%w: pitch %s was submitted concurrently", domain.ErrConflict, rec.ID)
	}
	return nil
}

// Generate asks an author agent for a pitch, with corporate memory in the
// prompt, then creates and submits it.
func (s *PitchService) Generate(ctx context.Context, req GenerateRequest) (*content.ContentRecord, error) {
	cfg := s.cfg.Get()
	authorID := req.AuthorAgentID
	if authorID == "" {
		authorID = cfg.Panel.DefaultAuthor
	}
	author := profileFor(cfg.Panel, authorID)

	memory, err := s.memory.Summarize(ctx, cfg.Memory.Limit)
	if err != nil {
		slog.WarnContext(ctx, "generate: corporate memory unavailable", "error", err)
		memory = ""
	}

	draft, err := callAgent(ctx, cfg.Agent.Timeout, "pitch", author.ID, func(ctx context.Context) (agent.Draft, error) {
		return s.agents.Pitch(ctx, author, agentcap.PitchRequest{
			Brand:     brandContext(cfg.Brand),
			Archetype: req.Archetype,
			Goal:      req.Goal,
			Memory:    memory,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("generate pitch: %w", err)
	}

	archetype := req.Archetype
	if archetype == "" {
		archetype = strings.TrimSpace(draft.Archetype)
	}
	title := draft.Title
	if title == "" {
		title = "Untitled pitch"
	}
	return s.Create(ctx, &content.CreateRequest{
		AuthorAgentID:    authorID,
		Title:            title,
		Body:             draft.Body,
		PersonaContext:   req.PersonaContext,
		ContentArchetype: archetype,
	})
}

// Get returns one record.
func (s *PitchService) Get(ctx context.Context, id string) (*content.ContentRecord, error) {
	return s.store.GetContent(ctx, id)
}

// Tree returns the whole revision tree that contains id, in revision order.
func (s *PitchService) Tree(ctx context.Context, id string) ([]content.ContentRecord, error) {
	rec, err := s.store.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.ListTree(ctx, rec.RootID())
}

// Comments lists the comments on a record.
func (s *PitchService) Comments(ctx context.Context, id string) ([]comment.Comment, error) {
	if _, err := s.store.GetContent(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, id)
}

// Votes lists the votes cast on a record.
func (s *PitchService) Votes(ctx context.Context, id string) ([]vote.Vote, error) {
	if _, err := s.store.GetContent(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListVotes(ctx, vote.VotableContent, id)
}
