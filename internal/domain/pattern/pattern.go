// Package pattern defines LearnedPattern, a durable lesson extracted from an
// execution's real-world metrics, and the corporate-memory summary built from them.
package pattern

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Type classifies a lesson.
type Type string

const (
	TypeSuccess Type = "success"
	TypeFailure Type = "failure"
)

// MinConfidence is the floor for patterns surfaced as corporate memory.
const MinConfidence = 0.8

// DefaultLimit is the number of patterns surfaced when no limit is given.
const DefaultLimit = 5

// LearnedPattern is never mutated after creation.
type LearnedPattern struct {
	ID                string    `json:"id"`
	SourceExecutionID string    `json:"source_execution_id,omitempty"`
	PatternType       Type      `json:"pattern_type"`
	ContextTag        string    `json:"context_tag"`
	Content           string    `json:"content"`
	Confidence        float64   `json:"confidence"`
	CreatedAt         time.Time `json:"created_at"`
}

// Validate checks type, content and confidence range.
func (p *LearnedPattern) Validate() error {
	if p.PatternType != TypeSuccess && p.PatternType != TypeFailure {
		return fmt.Errorf("%w: unknown pattern type %q", domain.ErrValidation, p.PatternType)
	}
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("%w: pattern content is empty", domain.ErrValidation)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0, 1]", domain.ErrValidation, p.Confidence)
	}
	return nil
}

// Rank orders patterns by confidence descending, breaking ties by creation
// time and then id so equal confidences have a stable order.
func Rank(patterns []LearnedPattern) {
	slices.SortStableFunc(patterns, func(a, b LearnedPattern) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Top returns at most limit patterns with confidence >= MinConfidence, ranked.
// The input slice is not modified.
func Top(patterns []LearnedPattern, limit int) []LearnedPattern {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]LearnedPattern, 0, len(patterns))
	for i := range patterns {
		if patterns[i].Confidence >= MinConfidence {
			out = append(out, patterns[i])
		}
	}
	Rank(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Summarize formats the top patterns as the text block injected into pitch
// generation prompts. No qualifying patterns yields "".
func Summarize(patterns []LearnedPattern, limit int) string {
	top := Top(patterns, limit)
	if len(top) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Corporate memory (lessons from past campaigns):\n")
	for i := range top {
		p := &top[i]
		tag := p.ContextTag
		if tag == "" {
			tag = "general"
		}
		fmt.Fprintf(&b, "- [%s] (%s, %.2f) %s\n", strings.ToUpper(string(p.PatternType)), tag, p.Confidence, strings.TrimSpace(p.Content))
	}
	return b.String()
}
