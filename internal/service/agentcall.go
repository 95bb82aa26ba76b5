package service

import (
	"context"
	"log/slog"
	"time"

	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
)

// callAgent bounds one agent call by timeout and wraps it in a span.
func callAgent[T any](ctx context.Context, timeout time.Duration, op, agentID string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := brotel.StartAgentSpan(ctx, op, agentID)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	brotel.EndSpan(span, err)
	return v, err
}

// logAgentFailure logs a skipped agent contribution. Malformed output and
// transport failures are both expected and never abort a batch.
func logAgentFailure(ctx context.Context, msg, op, agentID, postID string, err error) {
	kind := "call"
	if agent.IsParseError(err) {
		kind = "parse"
	}
	slog.WarnContext(ctx, msg,
		"op", op,
		"agent_id", agentID,
		"post_id", postID,
		"kind", kind,
		"error", err,
	)
}

func brandContext(b config.Brand) agentcap.BrandContext {
	return agentcap.BrandContext{
		Name:       b.Name,
		Voice:      b.Voice,
		Audience:   b.Audience,
		Guidelines: b.Guidelines,
	}
}

// profileFor returns the roster profile for id. Authors outside the roster
// borrow the default author's model and persona under their own id.
func profileFor(p config.Panel, id string) agent.Profile {
	if prof, ok := p.Roster.Get(id); ok {
		return prof
	}
	prof, ok := p.Roster.Get(p.DefaultAuthor)
	if !ok && len(p.Roster) > 0 {
		prof = p.Roster[0]
	}
	prof.ID = id
	prof.Name = id
	return prof
}

func pitchSubject(rec *content.ContentRecord, cfg *config.Config) agentcap.Subject {
	return agentcap.Subject{
		Kind:           "pitch",
		Title:          rec.Title,
		Body:           rec.Body,
		Archetype:      rec.ContentArchetype,
		AuthorPersona:  profileFor(cfg.Panel, rec.AuthorAgentID).Persona,
		PersonaContext: rec.PersonaContext,
		Brand:          brandContext(cfg.Brand),
	}
}

func parallelism(p config.Panel) int {
	return max(p.MaxParallel, 1)
}
