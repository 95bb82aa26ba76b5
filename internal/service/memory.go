package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/port/cache"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

var memoryCacheKey = cache.Key("memory", "patterns")

// memoryCacheCap bounds the pattern set cached under memoryCacheKey;
// larger limits are clamped to it.
const memoryCacheCap = 50

// MemoryService serves corporate memory: the top learned patterns and the
// text block built from them.
type MemoryService struct {
	db    database.Store
	cache cache.Cache
	cfg   *config.Holder
}

// NewMemoryService creates a MemoryService. c may be nil to disable caching.
func NewMemoryService(db database.Store, c cache.Cache, cfg *config.Holder) *MemoryService {
	return &MemoryService{db: db, cache: c, cfg: cfg}
}

// Patterns returns up to limit patterns with confidence >= pattern.MinConfidence,
// highest confidence first. A non-positive limit uses the configured default.
func (s *MemoryService) Patterns(ctx context.Context, limit int) ([]pattern.LearnedPattern, error) {
	if limit <= 0 {
		limit = s.cfg.Get().Memory.Limit
	}
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return pattern.Top(all, min(limit, memoryCacheCap)), nil
}

// Summarize returns the corporate memory block for prompts, or "" when
// nothing qualifies.
func (s *MemoryService) Summarize(ctx context.Context, limit int) (string, error) {
	top, err := s.Patterns(ctx, limit)
	if err != nil {
		return "", err
	}
	return pattern.Summarize(top, len(top)), nil
}

// Invalidate drops the cached pattern set.
func (s *MemoryService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, memoryCacheKey); err != nil {
		slog.WarnContext(ctx, "memory cache invalidation failed", "error", err)
	}
}

func (s *MemoryService) load(ctx context.Context) ([]pattern.LearnedPattern, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, memoryCacheKey); err == nil && ok {
			var cached []pattern.LearnedPattern
			uerr := json.Unmarshal(data, &cached)
			if uerr == nil {
				return cached, nil
			}
			slog.WarnContext(ctx, "memory cache entry unreadable", "error", uerr)
		} else if err != nil {
			slog.WarnContext(ctx, "memory cache read failed", "error", err)
		}
	}

	patterns, err := s.db.ListPatterns(ctx, pattern.MinConfidence, memoryCacheCap)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(patterns); err == nil {
			if err := s.cache.Set(ctx, memoryCacheKey, data, s.cfg.Get().Memory.TTL); err != nil {
				slog.WarnContext(ctx, "memory cache write failed", "error", err)
			}
		}
	}
	return patterns, nil
}
