package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/Boardroom/internal/domain/comment"
)

const commentColumns = `id, post_id, author_agent_id, body, type, net_score, created_at`

func (s *Store) CreateComment(ctx context.Context, c *comment.Comment) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO comments (`+commentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT DO NOTHING`,
		c.ID, c.PostID, c.AuthorAgentID, c.Body, string(c.Type), c.NetScore, c.CreatedAt)
	return insertedOne(tag, err, "create %s comment by %s on %s", c.Type, c.AuthorAgentID, c.PostID)
}

func (s *Store) GetComment(ctx context.Context, id string) (*comment.Comment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		return nil, notFoundWrap(err, "get comment %s", id)
	}
	return &c, nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]comment.Comment, error) {
	return s.queryComments(ctx, "list comments",
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created_at, id`, postID)
}

func (s *Store) ListCritiques(ctx context.Context, postIDs []string) ([]comment.Comment, error) {
	if len(postIDs) == 0 {
		return []comment.Comment{}, nil
	}
	return s.queryComments(ctx, "list critiques",
		`SELECT `+commentColumns+` FROM comments
		 WHERE post_id = ANY($1::uuid[]) AND type = 'critique'
		 ORDER BY created_at, id`, postIDs)
}

func (s *Store) UpdateCommentScore(ctx context.Context, id string, netScore int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE comments SET net_score = $2 WHERE id = $1`, id, netScore)
	return execExpectOne(tag, err, "update comment score %s", id)
}

func (s *Store) queryComments(ctx context.Context, op, query string, args ...any) ([]comment.Comment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapf(err, "%s", op)
	}
	defer rows.Close()

	out := []comment.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "%s", op)
	}
	return out, nil
}

func scanComment(row scannable) (comment.Comment, error) {
	var (
		c   comment.Comment
		typ string
	)
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorAgentID, &c.Body, &typ, &c.NetScore, &c.CreatedAt)
	c.Type = comment.Type(typ)
	return c, err
}
