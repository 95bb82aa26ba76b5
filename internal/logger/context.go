package logger

import "context"

// trace follows one pitch from the request that created it through every
// pipeline stage it passes. The scheduler copies requestID into stage
// payloads and the worker restores it next to the stage it runs.
type trace struct {
	requestID string
	stage     string
	targetID  string
}

type traceKey struct{}

func traceFrom(ctx context.Context) trace {
	t, _ := ctx.Value(traceKey{}).(trace)
	return t
}

// WithRequestID tags ctx with the id of the request that started the work.
func WithRequestID(ctx context.Context, id string) context.Context {
	t := traceFrom(ctx)
	t.requestID = id
	return context.WithValue(ctx, traceKey{}, t)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	return traceFrom(ctx).requestID
}

// WithStage tags ctx with the pipeline stage being run and the record or
// execution it runs on. Records logged under ctx carry both.
func WithStage(ctx context.Context, stage, targetID string) context.Context {
	t := traceFrom(ctx)
	t.stage, t.targetID = stage, targetID
	return context.WithValue(ctx, traceKey{}, t)
}

// Stage returns what WithStage set, or empty strings.
func Stage(ctx context.Context) (stage, targetID string) {
	t := traceFrom(ctx)
	return t.stage, t.targetID
}
