package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
)

// StageHandler runs one stage for one target. A non-nil error asks for
// redelivery.
type StageHandler func(ctx context.Context, targetID string) error

// PipelineWorker subscribes to every registered stage and dispatches
// deliveries to its handler.
type PipelineWorker struct {
	queue    messagequeue.Queue
	handlers map[deliberation.Stage]StageHandler
	metrics  *brotel.Metrics
	cancels  []func()
}

// NewPipelineWorker creates a worker on queue.
func NewPipelineWorker(queue messagequeue.Queue) *PipelineWorker {
	return &PipelineWorker{queue: queue, handlers: make(map[deliberation.Stage]StageHandler)}
}

// SetMetrics enables the stage duration histogram.
func (w *PipelineWorker) SetMetrics(m *brotel.Metrics) { w.metrics = m }

// Handle registers the handler for stage.
func (w *PipelineWorker) Handle(stage deliberation.Stage, h StageHandler) {
	w.handlers[stage] = h
}

// Start subscribes to every registered stage, in pipeline order.
func (w *PipelineWorker) Start(ctx context.Context) error {
	for _, stage := range deliberation.Stages {
		h, ok := w.handlers[stage]
		if !ok {
			continue
		}
		subject := messagequeue.StageSubject(string(stage))
		cancel, err := w.queue.Subscribe(ctx, subject, w.dispatch(stage, h))
		if err != nil {
			w.Stop()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		w.cancels = append(w.cancels, cancel)
	}
	slog.Info("pipeline worker started", "stages", len(w.cancels))
	return nil
}

// Stop cancels all subscriptions.
func (w *PipelineWorker) Stop() {
	for _, cancel := range w.cancels {
		cancel()
	}
	w.cancels = nil
}

func (w *PipelineWorker) dispatch(stage deliberation.Stage, h StageHandler) messagequeue.Handler {
	return func(ctx context.Context, subject string, data []byte) error {
		var p messagequeue.StagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			slog.ErrorContext(ctx, "undecodable stage payload", "subject", subject, "error", err)
			return nil
		}
		if p.RequestID != "" && logger.RequestID(ctx) == "" {
			ctx = logger.WithRequestID(ctx, p.RequestID)
		}
		ctx = logger.WithStage(ctx, string(stage), p.TargetID)

		ctx, span := brotel.StartStageSpan(ctx, string(stage), p.TargetID)
		start := time.Now()
		err := h(ctx, p.TargetID)
		w.metrics.StageDone(ctx, string(stage), start, err)
		brotel.EndSpan(span, err)

		if err != nil {
			slog.ErrorContext(ctx, "stage failed", "error", err)
			return err
		}
		slog.DebugContext(ctx, "stage done", "duration", time.Since(start))
		return nil
	}
}
