package nats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
)

var errStageFailed = errors.New("stage failed")

// delivery is one message seen by a test handler.
type delivery struct {
	payload   messagequeue.StagePayload
	requestID string
}

func testQueue(t *testing.T) *Queue {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// testStage derives a per-test stage so durable consumers never collide.
func testStage(t *testing.T) (stage, subject string) {
	t.Helper()
	stage = "test_" + strings.ToLower(strings.NewReplacer("/", "_", "-", "_").Replace(t.Name()))
	return stage, messagequeue.StageSubject(stage)
}

func publishStage(t *testing.T, ctx context.Context, q *Queue, stage, target string) {
	t.Helper()
	data, err := json.Marshal(messagequeue.StagePayload{Stage: stage, TargetID: target})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, messagequeue.StageSubject(stage), data); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

// subscribe runs fail for every delivery on subject and forwards the
// deliveries for which fail returned nil.
func subscribe(t *testing.T, q *Queue, subject string, fail func(attempt int32) error) <-chan delivery {
	t.Helper()
	out := make(chan delivery, 8)
	var attempts atomic.Int32
	stop, err := q.Subscribe(context.Background(), subject, func(ctx context.Context, _ string, data []byte) error {
		if err := fail(attempts.Add(1)); err != nil {
			return err
		}
		var p messagequeue.StagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		out <- delivery{payload: p, requestID: logger.RequestID(ctx)}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	t.Cleanup(stop)
	return out
}

func never(int32) error { return nil }

// watchDLQ returns the first payload parked on subject's dead-letter twin.
func watchDLQ(t *testing.T, q *Queue, subject string) <-chan []byte {
	t.Helper()
	consumer, err := q.js.CreateOrUpdateConsumer(context.Background(), streamName, jetstream.ConsumerConfig{
		FilterSubject: subject + dlqSuffix,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		t.Fatalf("dlq consumer: %v", err)
	}
	out := make(chan []byte, 1)
	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case out <- msg.Data():
		default:
		}
		_ = msg.Ack()
	})
	if err != nil {
		t.Fatalf("dlq consume: %v", err)
	}
	t.Cleanup(cons.Stop)
	return out
}

func await[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestStageRoundTripCarriesRequestID(t *testing.T) {
	q := testQueue(t)
	stage, subject := testStage(t)
	got := subscribe(t, q, subject, never)

	publishStage(t, logger.WithRequestID(context.Background(), "req-7"), q, stage, "post-1")

	d := await(t, got, "delivery")
	if d.payload.TargetID != "post-1" || d.payload.Stage != stage {
		t.Errorf("payload = %+v", d.payload)
	}
	if d.requestID != "req-7" {
		t.Errorf("request id = %q, want req-7", d.requestID)
	}
}

func TestFailedStageIsRetried(t *testing.T) {
	q := testQueue(t)
	stage, subject := testStage(t)
	got := subscribe(t, q, subject, func(attempt int32) error {
		if attempt == 1 {
			return errStageFailed
		}
		return nil
	})

	publishStage(t, context.Background(), q, stage, "flaky")
	if d := await(t, got, "redelivery"); d.payload.TargetID != "flaky" {
		t.Errorf("redelivered %+v", d.payload)
	}
}

func TestMismatchedStageIsDeadLettered(t *testing.T) {
	q := testQueue(t)
	_, subject := testStage(t)
	dlq := watchDLQ(t, q, subject)
	got := subscribe(t, q, subject, never)

	// A payload naming another stage fails validation on this subject.
	bad, _ := json.Marshal(messagequeue.StagePayload{Stage: "comment", TargetID: "post-1"})
	if err := q.Publish(context.Background(), subject, bad); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if data := await(t, dlq, "dead letter"); string(data) != string(bad) {
		t.Errorf("dead letter = %s", data)
	}
	select {
	case d := <-got:
		t.Fatalf("handler saw an invalid payload: %+v", d)
	default:
	}
}

func TestExhaustedRetriesAreDeadLettered(t *testing.T) {
	q := testQueue(t)
	stage, subject := testStage(t)
	dlq := watchDLQ(t, q, subject)
	subscribe(t, q, subject, func(int32) error { return errStageFailed })

	data, _ := json.Marshal(messagequeue.StagePayload{Stage: stage, TargetID: "doomed"})
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	msg.Header.Set(headerRetryCount, strconv.Itoa(maxRetries))
	if _, err := q.js.PublishMsg(context.Background(), msg); err != nil {
		t.Fatalf("PublishMsg: %v", err)
	}

	if got := await(t, dlq, "dead letter"); string(got) != string(data) {
		t.Errorf("dead letter = %s", got)
	}
}

func TestBuckets(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()
	if !q.IsConnected() {
		t.Fatal("not connected after Connect")
	}

	kv, err := q.KeyValue(ctx, "TEST_KV_"+strings.ToUpper(t.Name()), time.Minute)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}
	if _, err := kv.Put(ctx, "memory", []byte("block")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if e, err := kv.Get(ctx, "memory"); err != nil || string(e.Value()) != "block" {
		t.Fatalf("Get = %v, %v", e, err)
	}

	obs, err := q.ObjectStore(ctx, "TEST_OBJ_"+strings.ToUpper(t.Name()))
	if err != nil {
		t.Fatalf("ObjectStore: %v", err)
	}
	if _, err := obs.PutBytes(ctx, "executions/e1", []byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if b, err := obs.GetBytes(ctx, "executions/e1"); err != nil || len(b) != 4 {
		t.Fatalf("GetBytes = %v, %v", b, err)
	}
}

func TestRetryCount(t *testing.T) {
	for val, want := range map[string]int{"": 0, "2": 2, "-1": 0, "abc": 0} {
		h := nats.Header{}
		if val != "" {
			h.Set(headerRetryCount, val)
		}
		if got := retryCount(h); got != want {
			t.Errorf("retryCount(%q) = %d, want %d", val, got, want)
		}
	}
}

func TestDurableName(t *testing.T) {
	if got := durableName("pipeline.vote_comment"); got != "boardroom_pipeline_vote_comment" {
		t.Errorf("durableName = %q", got)
	}
	if got := durableName("pipeline.>"); strings.ContainsAny(got, ".>*") {
		t.Errorf("durableName kept illegal characters: %q", got)
	}
}
