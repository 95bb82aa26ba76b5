// Package content defines the ContentRecord domain entity: a pitch or one of
// its revisions, arranged in a revision tree with materialized ancestry.
package content

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Status represents the lifecycle state of a content record.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPublished     Status = "published"
	StatusNeedsRevision Status = "needs_revision"
	StatusPendingHuman  Status = "pending_human"
	StatusAccepted      Status = "accepted"
	StatusRejected      Status = "rejected"
	StatusProceeding    Status = "proceeding"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusNeedsRevision, StatusPendingHuman,
		StatusAccepted, StatusRejected, StatusProceeding:
		return true
	}
	return false
}

// IsTerminal returns true if no automatic transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusProceeding
}

// ContentRecord is a pitch (root) or a revision (child) in a revision tree.
// Ancestry holds every ancestor id, root first; a root has an empty Ancestry.
type ContentRecord struct {
	ID               string            `json:"id"`
	AuthorAgentID    string            `json:"author_agent_id"`
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	Status           Status            `json:"status"`
	RevisionNumber   int               `json:"revision_number"`
	ParentID         string            `json:"parent_id,omitempty"`
	Ancestry         []string          `json:"ancestry"`
	PersonaContext   map[string]string `json:"persona_context"`
	ContentArchetype string            `json:"content_archetype"`
	NetScore         int               `json:"net_score"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// IsRoot reports whether the record is the pitch at the top of its tree.
func (c *ContentRecord) IsRoot() bool {
	return c.ParentID == ""
}

// Depth returns the number of ancestors above the record (0 for a root).
func (c *ContentRecord) Depth() int {
	return len(c.Ancestry)
}

// RootID returns the id of the tree root.
func (c *ContentRecord) RootID() string {
	if len(c.Ancestry) == 0 {
		return c.ID
	}
	return c.Ancestry[0]
}

// Lineage returns the ancestry followed by the record's own id, root first.
func (c *ContentRecord) Lineage() []string {
	out := make([]string, 0, len(c.Ancestry)+1)
	out = append(out, c.Ancestry...)
	return append(out, c.ID)
}

// CreateRequest holds the fields needed to create a root pitch.
type CreateRequest struct {
	AuthorAgentID    string            `json:"author_agent_id"`
	Title            string            `json:"title"`
	Body             string            `json:"body"`
	PersonaContext   map[string]string `json:"persona_context"`
	ContentArchetype string            `json:"content_archetype"`
}

// Validate checks that a CreateRequest is well-formed.
func (r *CreateRequest) Validate() error {
	if r.AuthorAgentID == "" {
		return fmt.Errorf("%w: author_agent_id is required", domain.ErrValidation)
	}
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Body == "" {
		return fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	return nil
}

// NewRoot builds a root record in draft status with revision number 1.
func NewRoot(id string, req *CreateRequest, now time.Time) (*ContentRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ContentRecord{
		ID:               id,
		AuthorAgentID:    req.AuthorAgentID,
		Title:            req.Title,
		Body:             req.Body,
		Status:           StatusDraft,
		RevisionNumber:   1,
		Ancestry:         []string{},
		PersonaContext:   cloneContext(req.PersonaContext),
		ContentArchetype: req.ContentArchetype,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewRevision builds a published child of c. The child keeps the author,
// persona context and archetype of the tree and sits one revision deeper.
func (c *ContentRecord) NewRevision(id, title, body string, now time.Time) (*ContentRecord, error) {
	if body == "" {
		return nil, errors.New("revision body is empty")
	}
	if title == "" {
		title = c.Title
	}
	ancestry := slices.Clone(c.Ancestry)
	ancestry = append(ancestry, c.ID)
	return &ContentRecord{
		ID:               id,
		AuthorAgentID:    c.AuthorAgentID,
		Title:            title,
		Body:             body,
		Status:           StatusPublished,
		RevisionNumber:   c.RevisionNumber + 1,
		ParentID:         c.ID,
		Ancestry:         ancestry,
		PersonaContext:   cloneContext(c.PersonaContext),
		ContentArchetype: c.ContentArchetype,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CheckLineage verifies the tree invariants between a parent and its child.
func CheckLineage(parent, child *ContentRecord) error {
	if child.ParentID != parent.ID {
		return fmt.Errorf("child %s does not point at parent %s", child.ID, parent.ID)
	}
	if child.RevisionNumber != parent.RevisionNumber+1 {
		return fmt.Errorf("child revision %d, want %d", child.RevisionNumber, parent.RevisionNumber+1)
	}
	if child.Depth() != parent.Depth()+1 {
		return fmt.Errorf("child depth %d, want %d", child.Depth(), parent.Depth()+1)
	}
	if child.ContentArchetype != parent.ContentArchetype || !maps.Equal(child.PersonaContext, parent.PersonaContext) {
		return errors.New("child does not inherit the tree context")
	}
	return nil
}

func cloneContext(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
