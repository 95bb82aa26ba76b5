package litellm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	"github.com/Strob0t/Boardroom/internal/resilience"
)

func chatServer(t *testing.T, content string, check func(litellm.ChatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var req litellm.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		})
	}))
}

func TestChatCompletion(t *testing.T) {
	srv := chatServer(t, `{"direction": 1}`, func(req litellm.ChatRequest) {
		if req.Model != "openai/gpt-4o" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
			t.Errorf("messages = %+v", req.Messages)
		}
	})
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "test-key")
	got, err := client.ChatCompletion(context.Background(), litellm.ChatRequest{
		Model:    "openai/gpt-4o",
		Messages: []litellm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if got != `{"direction": 1}` {
		t.Fatalf("content = %q", got)
	}
}

func TestChatCompletionFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int // 0 when the failure is not an APIError
	}{
		{"no choices", http.StatusOK, `{"choices": []}`, 0},
		{"malformed body", http.StatusOK, `{"choices":`, 0},
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate limited"}`, http.StatusTooManyRequests},
		{"bad gateway", http.StatusBadGateway, "upstream\n", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := litellm.NewClient(srv.URL, "").ChatCompletion(context.Background(), litellm.ChatRequest{Model: "m"})
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *litellm.APIError
			if got := errors.As(err, &apiErr); got != (tt.wantStatus != 0) {
				t.Fatalf("APIError = %v for %v", got, err)
			}
			if apiErr != nil && (apiErr.Status != tt.wantStatus || strings.HasSuffix(apiErr.Body, "\n")) {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "")
	client.SetBreaker(resilience.NewBreaker(2, time.Minute))
	for range 3 {
		_, _ = client.ChatCompletion(context.Background(), litellm.ChatRequest{Model: "m"})
	}
	_, err := client.ChatCompletion(context.Background(), litellm.ChatRequest{Model: "m"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls)
	}
}

func TestListModelsSendsMasterKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/model/info" || r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("request = %s auth %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"data":[{"model_name":"gpt-4o","litellm_provider":"openai"},{"model_name":"claude-sonnet-4"}]}`))
	}))
	defer srv.Close()

	models, err := litellm.NewClient(srv.URL, "test-key").ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].Provider != "openai" {
		t.Fatalf("models = %+v", models)
	}
}

func TestHealth(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                 true,
		http.StatusServiceUnavailable: false,
		http.StatusUnauthorized:       false,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		healthy, err := litellm.NewClient(srv.URL, "k").Health(context.Background())
		srv.Close()
		if healthy != want || (err == nil) != want {
			t.Errorf("status %d: Health = %v, %v", status, healthy, err)
		}
	}
}

func TestPoolCapsInFlightCompletions(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := inFlight.Add(1)
		if cur > maxSeen.Load() {
			maxSeen.Store(cur)
		}
		<-release
		inFlight.Add(-1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "")
	client.SetPool(resilience.NewPool(1))
	req := litellm.ChatRequest{Model: "m", Messages: []litellm.Message{{Role: "user", Content: "hi"}}}

	first := make(chan error, 1)
	go func() {
		_, err := client.ChatCompletion(context.Background(), req)
		first <- err
	}()
	for inFlight.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.ChatCompletion(ctx, req); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second call: expected deadline while waiting for a slot, got %v", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first call: %v", err)
	}
	if maxSeen.Load() != 1 {
		t.Fatalf("max in flight = %d, want 1", maxSeen.Load())
	}
}
