package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "boardroom"

// Metrics holds the pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	VotesCast       metric.Int64Counter
	CommentsCreated metric.Int64Counter
	Decisions       metric.Int64Counter
	PatternsLearned metric.Int64Counter
	StageDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.VotesCast, err = meter.Int64Counter("boardroom.votes.cast",
		metric.WithDescription("Votes persisted, by votable and voter type"))
	if err != nil {
		return nil, err
	}

	m.CommentsCreated, err = meter.Int64Counter("boardroom.comments.created",
		metric.WithDescription("Comments persisted, by type"))
	if err != nil {
		return nil, err
	}

	m.Decisions, err = meter.Int64Counter("boardroom.decisions",
		metric.WithDescription("Deliberation outcomes"))
	if err != nil {
		return nil, err
	}

	m.PatternsLearned, err = meter.Int64Counter("boardroom.patterns.learned",
		metric.WithDescription("Learned patterns persisted"))
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram("boardroom.stage.duration_seconds",
		metric.WithDescription("Pipeline stage handler duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) VoteCast(ctx context.Context, votableType, voterType string) {
	if m == nil {
		return
	}
	m.VotesCast.Add(ctx, 1, metric.WithAttributes(
		attribute.String("votable_type", votableType),
		attribute.String("voter_type", voterType),
	))
}

func (m *Metrics) CommentCreated(ctx context.Context, typ string) {
	if m == nil {
		return
	}
	m.CommentsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typ)))
}

func (m *Metrics) Decision(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) PatternLearned(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.PatternsLearned.Add(ctx, int64(n))
}

func (m *Metrics) StageDone(ctx context.Context, stage string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("error", err != nil),
	))
}
