package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain/execution"
)

const executionColumns = `id, post_id, platform, brief, asset_key, metrics, executed_at, metrics_at`

// CreateExecution inserts the single execution of an accepted pitch.
func (s *Store) CreateExecution(ctx context.Context, e *execution.Execution) error {
	brief, err := json.Marshal(e.Brief)
	if err != nil {
		return fmt.Errorf("marshal brief: %w", err)
	}
	metrics, err := json.Marshal(orEmptyMetrics(e.Metrics))
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO executions (`+executionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING`,
		e.ID, e.PostID, e.Platform, brief, e.AssetKey, metrics, e.ExecutedAt, e.MetricsAt)
	return insertedOne(tag, err, "create execution for %s", e.PostID)
}

func (s *Store) GetExecution(ctx context.Context, id string) (*execution.Execution, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = $1`, id)
	e, err := scanExecution(row)
	if err != nil {
		return nil, notFoundWrap(err, "get execution %s", id)
	}
	return &e, nil
}

func (s *Store) GetExecutionByPost(ctx context.Context, postID string) (*execution.Execution, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+executionColumns+` FROM executions WHERE post_id = $1`, postID)
	e, err := scanExecution(row)
	if err != nil {
		return nil, notFoundWrap(err, "get execution for post %s", postID)
	}
	return &e, nil
}

func (s *Store) UpdateExecutionAsset(ctx context.Context, id, assetKey string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE executions SET asset_key = $2 WHERE id = $1`, id, assetKey)
	return execExpectOne(tag, err, "update execution asset %s", id)
}

func (s *Store) UpdateExecutionMetrics(ctx context.Context, id string, m execution.Metrics, at time.Time) error {
	metrics, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE executions SET metrics = $2, metrics_at = $3 WHERE id = $1`, id, metrics, nullTime(at))
	return execExpectOne(tag, err, "update execution metrics %s", id)
}

func scanExecution(row scannable) (execution.Execution, error) {
	var (
		e              execution.Execution
		brief, metrics []byte
	)
	if err := row.Scan(&e.ID, &e.PostID, &e.Platform, &brief, &e.AssetKey, &metrics, &e.ExecutedAt, &e.MetricsAt); err != nil {
		return e, err
	}
	if err := json.Unmarshal(brief, &e.Brief); err != nil {
		return e, fmt.Errorf("decode brief: %w", err)
	}
	if err := json.Unmarshal(metrics, &e.Metrics); err != nil {
		return e, fmt.Errorf("decode metrics: %w", err)
	}
	if len(e.Metrics) == 0 {
		e.Metrics = nil
	}
	return e, nil
}

func orEmptyMetrics(m execution.Metrics) execution.Metrics {
	if m == nil {
		return execution.Metrics{}
	}
	return m
}
