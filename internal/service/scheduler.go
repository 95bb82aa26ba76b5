package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
)

// Enqueuer schedules a pipeline stage for a target.
type Enqueuer interface {
	Enqueue(ctx context.Context, stage deliberation.Stage, targetID string) error
}

// Scheduler publishes stage payloads to the message queue.
type Scheduler struct {
	queue messagequeue.Queue
}

// NewScheduler creates a Scheduler on top of queue.
func NewScheduler(queue messagequeue.Queue) *Scheduler {
	return &Scheduler{queue: queue}
}

// Enqueue publishes a validated StagePayload on the stage's subject.
// The request id in ctx travels with the payload.
func (s *Scheduler) Enqueue(ctx context.Context, stage deliberation.Stage, targetID string) error {
	if !stage.Valid() {
		return fmt.Errorf("enqueue: unknown stage %q", stage)
	}
	payload := messagequeue.StagePayload{
		Stage:     string(stage),
		TargetID:  targetID,
		RequestID: logger.RequestID(ctx),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal stage payload: %w", err)
	}
	subject := messagequeue.StageSubject(string(stage))
	if err := messagequeue.Validate(subject, data); err != nil {
		return fmt.Errorf("enqueue %s: %w", stage, err)
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	slog.DebugContext(ctx, "stage scheduled", "next_stage", stage, "next_target_id", targetID)
	return nil
}
