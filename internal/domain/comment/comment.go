// Package comment defines the Comment domain entity: a supportive or critical
// note an agent attaches to a content record.
package comment

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Type distinguishes supportive notes from critiques.
type Type string

const (
	TypeStrategy Type = "strategy" // pro
	TypeCritique Type = "critique" // con
)

// Comment is immutable once created.
type Comment struct {
	ID            string    `json:"id"`
	PostID        string    `json:"post_id"`
	AuthorAgentID string    `json:"author_agent_id"`
	Body          string    `json:"body"`
	Type          Type      `json:"type"`
	NetScore      int       `json:"net_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// New builds a comment and rejects a note written by the post's own author.
func New(id, postID, postAuthorID, authorAgentID string, typ Type, body string, now time.Time) (*Comment, error) {
	if typ != TypeStrategy && typ != TypeCritique {
		return nil, fmt.Errorf("%w: unknown comment type %q", domain.ErrValidation, typ)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is empty", domain.ErrValidation)
	}
	if authorAgentID == postAuthorID {
		return nil, fmt.Errorf("%w: agent %s cannot comment on its own post", domain.ErrConstraintViolation, authorAgentID)
	}
	return &Comment{
		ID:            id,
		PostID:        postID,
		AuthorAgentID: authorAgentID,
		Body:          body,
		Type:          typ,
		CreatedAt:     now,
	}, nil
}

// Critiques filters comments down to the critique type, preserving order.
func Critiques(comments []Comment) []Comment {
	var out []Comment
	for i := range comments {
		if comments[i].Type == TypeCritique {
			out = append(out, comments[i])
		}
	}
	return out
}
