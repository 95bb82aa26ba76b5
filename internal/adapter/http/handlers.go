package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
	"github.com/Strob0t/Boardroom/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Pitches      *service.PitchService
	Voting       *service.VotingService
	Deliberation *service.DeliberationService
	Executions   *service.ExecutionService
	PostMortem   *service.PostMortemService
	Memory       *service.MemoryService
	Health       []HealthCheck
}

// CreatePitch handles POST /api/v1/pitches.
func (h *Handlers) CreatePitch(w http.ResponseWriter, r *http.Request) {
	serveCreate(h.Pitches.Create)(w, r)
}

// GeneratePitch handles POST /api/v1/pitches/generate.
func (h *Handlers) GeneratePitch(w http.ResponseWriter, r *http.Request) {
	serveCreate(func(ctx context.Context, req *service.GenerateRequest) (*content.ContentRecord, error) {
		return h.Pitches.Generate(ctx, *req)
	})(w, r)
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	serveOne(h.Pitches.Get, "post not found")(w, r)
}

// GetTree handles GET /api/v1/posts/{id}/tree.
func (h *Handlers) GetTree(w http.ResponseWriter, r *http.Request) {
	serveList(h.Pitches.Tree, "post not found")(w, r)
}

// ListComments handles GET /api/v1/posts/{id}/comments.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	serveList(h.Pitches.Comments, "post not found")(w, r)
}

// ListVotes handles GET /api/v1/posts/{id}/votes.
func (h *Handlers) ListVotes(w http.ResponseWriter, r *http.Request) {
	serveList(h.Pitches.Votes, "post not found")(w, r)
}

type humanVoteRequest struct {
	VoterID   string         `json:"voter_id"`
	Direction vote.Direction `json:"direction"`
}

type scoreResponse struct {
	PostID   string `json:"post_id"`
	NetScore int    `json:"net_score"`
}

// CastVote handles POST /api/v1/posts/{id}/votes. The vote updates the score
// but does not re-run deliberation.
func (h *Handlers) CastVote(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[humanVoteRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.VoterID, "voter_id") {
		return
	}
	id := urlParam(r, "id")
	score, err := h.Voting.CastHumanVote(r.Context(), id, req.VoterID, req.Direction)
	if err != nil {
		writeDomainError(w, err, "post not found")
		return
	}
	writeJSON(w, http.StatusCreated, scoreResponse{PostID: id, NetScore: score})
}

type decisionRequest struct {
	Decision string `json:"decision"` // "accept" or "reject"
}

// Decide handles POST /api/v1/posts/{id}/decision for pending_human pitches.
func (h *Handlers) Decide(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[decisionRequest](w, r)
	if !ok {
		return
	}
	var accept bool
	switch req.Decision {
	case "accept":
		accept = true
	case "reject":
	default:
		writeError(w, http.StatusBadRequest, `decision must be "accept" or "reject"`)
		return
	}
	rec, err := h.Deliberation.HumanDecision(r.Context(), urlParam(r, "id"), accept)
	if err != nil {
		writeDomainError(w, err, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetExecution handles GET /api/v1/executions/{id}.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	serveOne(h.Executions.Get, "execution not found")(w, r)
}

// GetAsset handles GET /api/v1/executions/{id}/asset.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	data, err := h.Executions.Asset(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "asset not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// RecordMetrics handles PUT /api/v1/executions/{id}/metrics.
func (h *Handlers) RecordMetrics(w http.ResponseWriter, r *http.Request) {
	serveUpdate(h.PostMortem.RecordMetrics, "execution not found")(w, r)
}

type memoryResponse struct {
	Patterns []pattern.LearnedPattern `json:"patterns"`
	Summary  string                   `json:"summary"`
}

// GetMemory handles GET /api/v1/memory?limit=N.
func (h *Handlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	patterns, err := h.Memory.Patterns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, "memory unavailable")
		return
	}
	summary, err := h.Memory.Summarize(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, "memory unavailable")
		return
	}
	if patterns == nil {
		patterns = []pattern.LearnedPattern{}
	}
	writeJSON(w, http.StatusOK, memoryResponse{Patterns: patterns, Summary: summary})
}
