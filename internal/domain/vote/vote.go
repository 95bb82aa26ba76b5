// Package vote defines the Vote domain entity and the net-score aggregation
// shared by content records and comments.
package vote

import (
	"fmt"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// VotableType names the kind of entity a vote is attached to.
type VotableType string

const (
	VotableContent VotableType = "ContentRecord"
	VotableComment VotableType = "Comment"
)

// VoterType distinguishes automated reviewers from people.
type VoterType string

const (
	VoterAgent VoterType = "Agent"
	VoterHuman VoterType = "Human"
)

// Direction is a verdict, either Up (+1) or Down (-1).
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

// Valid reports whether d is +1 or -1.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// DefaultWeight is persisted on every vote. The score formula does not read it;
// human votes count double through VoterType instead.
const DefaultWeight = 1

// Ref identifies something that can be voted on.
type Ref struct {
	Type          VotableType `json:"votable_type"`
	ID            string      `json:"votable_id"`
	AuthorAgentID string      `json:"author_agent_id"`
}

// Vote is one voter's verdict on a votable.
type Vote struct {
	ID          string      `json:"id"`
	VotableType VotableType `json:"votable_type"`
	VotableID   string      `json:"votable_id"`
	VoterID     string      `json:"voter_id"`
	VoterType   VoterType   `json:"voter_type"`
	Weight      int         `json:"weight"`
	Direction   Direction   `json:"direction"`
	CreatedAt   time.Time   `json:"created_at"`
}

// New builds a vote on ref. An agent voting on something it authored is a
// constraint violation.
func New(id string, ref Ref, voterID string, voterType VoterType, dir Direction, now time.Time) (*Vote, error) {
	if ref.Type != VotableContent && ref.Type != VotableComment {
		return nil, fmt.Errorf("%w: unknown votable type %q", domain.ErrValidation, ref.Type)
	}
	if voterType != VoterAgent && voterType != VoterHuman {
		return nil, fmt.Errorf("%w: unknown voter type %q", domain.ErrValidation, voterType)
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction must be -1 or +1, got %d", domain.ErrValidation, dir)
	}
	if voterID == "" {
		return nil, fmt.Errorf("%w: voter_id is required", domain.ErrValidation)
	}
	if voterType == VoterAgent && voterID == ref.AuthorAgentID {
		return nil, fmt.Errorf("%w: agent %s cannot vote on its own %s", domain.ErrConstraintViolation, voterID, ref.Type)
	}
	return &Vote{
		ID:          id,
		VotableType: ref.Type,
		VotableID:   ref.ID,
		VoterID:     voterID,
		VoterType:   voterType,
		Weight:      DefaultWeight,
		Direction:   dir,
		CreatedAt:   now,
	}, nil
}

// Multiplier returns the score multiplier for a voter type.
func Multiplier(t VoterType) int {
	if t == VoterHuman {
		return 2
	}
	return 1
}

// NetScore recomputes the weighted sum from scratch:
// Σ direction × (2 if Human else 1).
func NetScore(votes []Vote) int {
	score := 0
	for i := range votes {
		score += int(votes[i].Direction) * Multiplier(votes[i].VoterType)
	}
	return score
}
