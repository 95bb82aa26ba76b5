package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log output on shutdown.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// pending is a record waiting for a writer, bound to the handler that
// carries its attrs and groups.
type pending struct {
	ctx  context.Context
	dest slog.Handler
	rec  slog.Record
}

// backlog is shared by every handler derived from one AsyncHandler.
type backlog struct {
	queue   chan pending
	writers sync.WaitGroup

	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Int64
}

func (b *backlog) write() {
	defer b.writers.Done()
	for p := range b.queue {
		_ = p.dest.Handle(p.ctx, p.rec)
	}
}

// AsyncHandler moves record formatting and I/O off the pipeline workers.
// When the backlog is full the record is counted and dropped so a slow
// stdout never stalls a stage handler.
type AsyncHandler struct {
	dest slog.Handler
	log  *backlog
}

// NewAsyncHandler starts writers goroutines draining a backlog of size records.
func NewAsyncHandler(dest slog.Handler, size, writers int) *AsyncHandler {
	b := &backlog{queue: make(chan pending, size)}
	b.writers.Add(writers)
	for range writers {
		go b.write()
	}
	return &AsyncHandler{dest: dest, log: b}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.dest.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	// The record outlives the stage, so keep ctx values but not its deadline.
	p := pending{ctx: context.WithoutCancel(ctx), dest: h.dest, rec: rec.Clone()}

	h.log.mu.RLock()
	defer h.log.mu.RUnlock()
	if h.log.closed {
		h.log.dropped.Add(1)
		return nil
	}
	select {
	case h.log.queue <- p:
	default:
		h.log.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{dest: h.dest.WithAttrs(attrs), log: h.log}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{dest: h.dest.WithGroup(name), log: h.log}
}

// DroppedCount reports records lost to a full backlog or a closed handler.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.log.dropped.Load()
}

// Close stops intake and waits for the writers to flush the backlog. It is
// idempotent and shared across derived handlers.
func (h *AsyncHandler) Close() {
	h.log.mu.Lock()
	if h.log.closed {
		h.log.mu.Unlock()
		return
	}
	h.log.closed = true
	close(h.log.queue)
	h.log.mu.Unlock()
	h.log.writers.Wait()
}
