// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain/comment"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
)

// Store is the port interface for database operations.
//
// Writes that hit a uniqueness guard return domain.ErrConstraintViolation,
// lookups that miss return domain.ErrNotFound, and a lost compare-and-set
// returns domain.ErrConflict.
type Store interface {
	// Content records
	CreateContent(ctx context.Context, c *content.ContentRecord) error
	// CreateRevision inserts a child record. A parent holds at most one child.
	CreateRevision(ctx context.Context, child *content.ContentRecord) error
	GetContent(ctx context.Context, id string) (*content.ContentRecord, error)
	GetChild(ctx context.Context, parentID string) (*content.ContentRecord, error)
	ListTree(ctx context.Context, rootID string) ([]content.ContentRecord, error)
	CompareAndSetStatus(ctx context.Context, id string, expected, next content.Status) error
	UpdateContentScore(ctx context.Context, id string, netScore int) error
	RecentAcceptedTitles(ctx context.Context, limit int) ([]string, error)
	// ListContentByStatus returns up to limit records in any of statuses,
	// least recently updated first.
	ListContentByStatus(ctx context.Context, statuses []content.Status, limit int) ([]content.ContentRecord, error)

	// Comments
	CreateComment(ctx context.Context, c *comment.Comment) error
	GetComment(ctx context.Context, id string) (*comment.Comment, error)
	ListComments(ctx context.Context, postID string) ([]comment.Comment, error)
	// ListCritiques returns critique comments on any of postIDs, oldest first.
	ListCritiques(ctx context.Context, postIDs []string) ([]comment.Comment, error)
	UpdateCommentScore(ctx context.Context, id string, netScore int) error

	// Votes
	CreateVote(ctx context.Context, v *vote.Vote) error
	ListVotes(ctx context.Context, votableType vote.VotableType, votableID string) ([]vote.Vote, error)

	// Executions
	CreateExecution(ctx context.Context, e *execution.Execution) error
	GetExecution(ctx context.Context, id string) (*execution.Execution, error)
	GetExecutionByPost(ctx context.Context, postID string) (*execution.Execution, error)
	UpdateExecutionAsset(ctx context.Context, id, assetKey string) error
	UpdateExecutionMetrics(ctx context.Context, id string, m execution.Metrics, at time.Time) error

	// Learned patterns
	// CreatePatterns stores every pattern learned from one execution in a
	// single transaction. An execution that already has patterns returns
	// domain.ErrConstraintViolation and nothing is written.
	CreatePatterns(ctx context.Context, executionID string, ps []pattern.LearnedPattern) error
	CountPatternsForExecution(ctx context.Context, executionID string) (int, error)
	// ListPatterns returns patterns with confidence >= minConfidence,
	// ordered by confidence desc, created_at, id.
	ListPatterns(ctx context.Context, minConfidence float64, limit int) ([]pattern.LearnedPattern, error)
}
