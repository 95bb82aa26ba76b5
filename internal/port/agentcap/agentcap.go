// Package agentcap defines the port to the text and image generation
// capability that plays every panel member.
package agentcap

import (
	"context"

	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
)

// BrandContext describes the brand every prompt is written for.
type BrandContext struct {
	Name       string `json:"name"`
	Voice      string `json:"voice"`
	Audience   string `json:"audience"`
	Guidelines string `json:"guidelines"`
}

// Subject is the pitch or comment under review.
type Subject struct {
	Kind           string            `json:"kind"` // "pitch" or "comment"
	Title          string            `json:"title,omitempty"`
	Body           string            `json:"body"`
	Archetype      string            `json:"archetype,omitempty"`
	AuthorPersona  string            `json:"author_persona,omitempty"`
	PersonaContext map[string]string `json:"persona_context,omitempty"`
	Brand          BrandContext      `json:"brand"`
}

// PitchRequest asks for a fresh root pitch.
type PitchRequest struct {
	Brand     BrandContext `json:"brand"`
	Archetype string       `json:"archetype,omitempty"`
	Goal      string       `json:"goal,omitempty"`
	Memory    string       `json:"memory,omitempty"`
}

// RevisionRequest asks the author to rework a failed pitch.
type RevisionRequest struct {
	Brand      BrandContext `json:"brand"`
	Title      string       `json:"title"`
	FailedBody string       `json:"failed_body"`
	Critiques  []string     `json:"critiques"`
	DenyTitles []string     `json:"deny_titles,omitempty"`
}

// BriefRequest asks for a creative brief for an accepted pitch.
type BriefRequest struct {
	Brand          BrandContext      `json:"brand"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Archetype      string            `json:"archetype,omitempty"`
	PersonaContext map[string]string `json:"persona_context,omitempty"`
}

// PostMortemRequest compares real-world metrics against the pitch.
type PostMortemRequest struct {
	Brand   BrandContext      `json:"brand"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Brief   execution.Brief   `json:"brief"`
	Metrics execution.Metrics `json:"metrics"`
}

// Capability is the agent capability. Implementations return *agent.CallError
// for transport failures and *agent.ParseError for malformed output.
type Capability interface {
	Pitch(ctx context.Context, author agent.Profile, req PitchRequest) (agent.Draft, error)
	Evaluate(ctx context.Context, voter agent.Profile, subject Subject) (agent.Verdict, error)
	Critique(ctx context.Context, critic agent.Profile, subject Subject) (agent.Critique, error)
	ReviseBody(ctx context.Context, author agent.Profile, req RevisionRequest) (agent.Draft, error)
	Brief(ctx context.Context, req BriefRequest) (agent.Brief, error)
	PostMortem(ctx context.Context, req PostMortemRequest) ([]agent.Insight, error)
}

// AssetGenerator renders an image for a prompt. A nil slice with a nil error
// means nothing was produced.
type AssetGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// AssetStore persists generated binaries and returns their key.
type AssetStore interface {
	PutAsset(ctx context.Context, key string, data []byte, contentType string) error
	GetAsset(ctx context.Context, key string) ([]byte, error)
}
