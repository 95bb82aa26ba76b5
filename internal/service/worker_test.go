package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
)

func stagePayload(t *testing.T, stage deliberation.Stage, target, requestID string) []byte {
	t.Helper()
	data, err := json.Marshal(messagequeue.StagePayload{Stage: string(stage), TargetID: target, RequestID: requestID})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestPipelineWorker_SubscribesRegisteredStages(t *testing.T) {
	q := &mockQueue{}
	w := NewPipelineWorker(q)
	noop := func(context.Context, string) error { return nil }
	w.Handle(deliberation.StageComment, noop)
	w.Handle(deliberation.StageDeliberate, noop)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(q.handlers) != 2 {
		t.Fatalf("subscriptions = %d, want 2", len(q.handlers))
	}
	if _, ok := q.handlers["pipeline.deliberate"]; !ok {
		t.Fatal("deliberate not subscribed")
	}

	w.Stop()
	if len(q.handlers) != 0 {
		t.Fatalf("subscriptions after Stop = %d", len(q.handlers))
	}
}

func TestPipelineWorker_Dispatch(t *testing.T) {
	q := &mockQueue{}
	w := NewPipelineWorker(q)

	var gotTarget, gotRequest string
	w.Handle(deliberation.StageVote, func(ctx context.Context, targetID string) error {
		gotTarget = targetID
		gotRequest = logger.RequestID(ctx)
		return nil
	})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	h := q.handlers["pipeline.vote"]
	if err := h(context.Background(), "pipeline.vote", stagePayload(t, deliberation.StageVote, "p9", "req-7")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotTarget != "p9" || gotRequest != "req-7" {
		t.Fatalf("handler saw target=%q request=%q", gotTarget, gotRequest)
	}
}

func TestPipelineWorker_ErrorsAndBadPayload(t *testing.T) {
	q := &mockQueue{}
	w := NewPipelineWorker(q)
	boom := errors.New("db unavailable")
	calls := 0
	w.Handle(deliberation.StageExecute, func(context.Context, string) error {
		calls++
		return boom
	})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	h := q.handlers["pipeline.execute"]
	if err := h(context.Background(), "pipeline.execute", stagePayload(t, deliberation.StageExecute, "p1", "")); !errors.Is(err, boom) {
		t.Fatalf("expected handler error for redelivery, got %v", err)
	}
	if err := h(context.Background(), "pipeline.execute", []byte("{not json")); err != nil {
		t.Fatalf("bad payload must be acked, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}
