package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
)

// CreatePatterns locks the source execution, checks it has no patterns yet
// and inserts ps as one batch. Either every pattern lands or none does.
func (s *Store) CreatePatterns(ctx context.Context, executionID string, ps []pattern.LearnedPattern) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM executions WHERE id = $1 FOR UPDATE`, executionID).Scan(&id)
		if err != nil {
			return notFoundWrap(err, "lock execution %s", executionID)
		}
		var n int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM learned_patterns WHERE source_execution_id = $1`, executionID).Scan(&n); err != nil {
			return fmt.Errorf("count patterns for %s: %w", executionID, err)
		}
		if n > 0 {
			return fmt.Errorf("execution %s has %d patterns: %w", executionID, n, domain.ErrConstraintViolation)
		}

		batch := &pgx.Batch{}
		for i := range ps {
			p := &ps[i]
			batch.Queue(
				`INSERT INTO learned_patterns (id, source_execution_id, pattern_type, context_tag, content, confidence, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, executionID, string(p.PatternType), p.ContextTag, p.Content, p.Confidence, p.CreatedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range ps {
			if _, err := br.Exec(); err != nil {
				br.Close() //nolint:errcheck // the insert error is the one reported
				if isUniqueViolation(err) {
					err = domain.ErrConstraintViolation
				}
				return wrapf(err, "create pattern %s", ps[i].ID)
			}
		}
		return br.Close()
	})
	if err != nil {
		return fmt.Errorf("create patterns for %s: %w", executionID, err)
	}
	return nil
}

func (s *Store) CountPatternsForExecution(ctx context.Context, executionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM learned_patterns WHERE source_execution_id = $1`, executionID).Scan(&n)
	if err != nil {
		return 0, wrapf(err, "count patterns for %s", executionID)
	}
	return n, nil
}

func (s *Store) ListPatterns(ctx context.Context, minConfidence float64, limit int) ([]pattern.LearnedPattern, error) {
	if limit <= 0 {
		limit = pattern.DefaultLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_execution_id, pattern_type, context_tag, content, confidence, created_at
		 FROM learned_patterns
		 WHERE confidence >= $1
		 ORDER BY confidence DESC, created_at, id
		 LIMIT $2`, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	out := []pattern.LearnedPattern{}
	for rows.Next() {
		var (
			p      pattern.LearnedPattern
			source *string
			typ    string
		)
		if err := rows.Scan(&p.ID, &source, &typ, &p.ContextTag, &p.Content, &p.Confidence, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.SourceExecutionID = derefString(source)
		p.PatternType = pattern.Type(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}
