package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/content"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Content records ---

const contentColumns = `id, author_agent_id, title, body, status, revision_number, parent_id,
	ancestry, persona_context, content_archetype, net_score, created_at, updated_at`

func (s *Store) CreateContent(ctx context.Context, c *content.ContentRecord) error {
	persona, err := json.Marshal(c.PersonaContext)
	if err != nil {
		return fmt.Errorf("marshal persona context: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO content_records (`+contentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::uuid[], $9, $10, $11, $12, $13)
		 ON CONFLICT DO NOTHING`,
		c.ID, c.AuthorAgentID, c.Title, c.Body, string(c.Status), c.RevisionNumber, nullIfEmpty(c.ParentID),
		pgUUIDArray(c.Ancestry), persona, c.ContentArchetype, c.NetScore, c.CreatedAt, c.UpdatedAt)
	return insertedOne(tag, err, "create content %s", c.ID)
}

// CreateRevision inserts child under a lock on its parent. The parent must
// still be needs_revision and must not already have a child.
func (s *Store) CreateRevision(ctx context.Context, child *content.ContentRecord) error {
	if child.ParentID == "" {
		return fmt.Errorf("create revision %s: %w: parent is required", child.ID, domain.ErrValidation)
	}
	persona, err := json.Marshal(child.PersonaContext)
	if err != nil {
		return fmt.Errorf("marshal persona context: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var parentStatus string
	err = tx.QueryRow(ctx,
		`SELECT status FROM content_records WHERE id = $1 FOR UPDATE`, child.ParentID,
	).Scan(&parentStatus)
	if err != nil {
		return notFoundWrap(err, "lock parent %s", child.ParentID)
	}
	if content.Status(parentStatus) != content.StatusNeedsRevision {
		return fmt.Errorf("create revision of %s in status %s: %w", child.ParentID, parentStatus, domain.ErrConflict)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO content_records (`+contentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::uuid[], $9, $10, $11, $12, $13)
		 ON CONFLICT DO NOTHING`,
		child.ID, child.AuthorAgentID, child.Title, child.Body, string(child.Status), child.RevisionNumber,
		child.ParentID, pgUUIDArray(child.Ancestry), persona, child.ContentArchetype, child.NetScore,
		child.CreatedAt, child.UpdatedAt)
	if err := insertedOne(tag, err, "insert revision %s", child.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit revision: %w", err)
	}
	return nil
}

func (s *Store) GetContent(ctx context.Context, id string) (*content.ContentRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM content_records WHERE id = $1`, id)
	c, err := scanContent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get content %s", id)
	}
	return &c, nil
}

func (s *Store) GetChild(ctx context.Context, parentID string) (*content.ContentRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM content_records WHERE parent_id = $1`, parentID)
	c, err := scanContent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get child of %s", parentID)
	}
	return &c, nil
}

// ListTree returns the root and every descendant ordered by revision.
func (s *Store) ListTree(ctx context.Context, rootID string) ([]content.ContentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contentColumns+` FROM content_records
		 WHERE id = $1 OR ancestry[1] = $1
		 ORDER BY revision_number, created_at`, rootID)
	if err != nil {
		return nil, wrapf(err, "list tree %s", rootID)
	}
	defer rows.Close()

	var out []content.ContentRecord
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tree node: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "list tree %s", rootID)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("list tree %s: %w", rootID, domain.ErrNotFound)
	}
	return out, nil
}

// CompareAndSetStatus moves id from expected to next. A missing row is
// ErrNotFound; a row in any other status is ErrConflict.
func (s *Store) CompareAndSetStatus(ctx context.Context, id string, expected, next content.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE content_records SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2`, id, string(expected), string(next))
	if err != nil {
		return wrapf(err, "set status %s", id)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	if err := s.pool.QueryRow(ctx, `SELECT status FROM content_records WHERE id = $1`, id).Scan(&current); err != nil {
		return notFoundWrap(err, "set status %s", id)
	}
	return fmt.Errorf("set status %s: is %s, expected %s: %w", id, current, expected, domain.ErrConflict)
}

func (s *Store) UpdateContentScore(ctx context.Context, id string, netScore int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE content_records SET net_score = $2, updated_at = now() WHERE id = $1`, id, netScore)
	return execExpectOne(tag, err, "update score %s", id)
}

func (s *Store) RecentAcceptedTitles(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title FROM content_records
		 WHERE status IN ('accepted', 'proceeding')
		 ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent accepted titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (s *Store) ListContentByStatus(ctx context.Context, statuses []content.Status, limit int) ([]content.ContentRecord, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+contentColumns+` FROM content_records
		 WHERE status = ANY($1)
		 ORDER BY updated_at, id LIMIT $2`, names, limit)
	if err != nil {
		return nil, fmt.Errorf("list content by status: %w", err)
	}
	defer rows.Close()

	out := []content.ContentRecord{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanContent(row scannable) (content.ContentRecord, error) {
	var (
		c        content.ContentRecord
		status   string
		parentID *string
		persona  []byte
	)
	err := row.Scan(&c.ID, &c.AuthorAgentID, &c.Title, &c.Body, &status, &c.RevisionNumber, &parentID,
		&c.Ancestry, &persona, &c.ContentArchetype, &c.NetScore, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Status = content.Status(status)
	c.ParentID = derefString(parentID)
	c.Ancestry = orEmpty(c.Ancestry)
	if len(persona) > 0 {
		if err := json.Unmarshal(persona, &c.PersonaContext); err != nil {
			return c, fmt.Errorf("decode persona context: %w", err)
		}
	}
	if c.PersonaContext == nil {
		c.PersonaContext = map[string]string{}
	}
	return c, nil
}
