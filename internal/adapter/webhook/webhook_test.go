package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostSendsJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).Post(context.Background(), map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got["text"] != "hi" {
		t.Fatalf("payload = %v", got)
	}
}

func TestPostTruncatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(strings.Repeat("x", 4*maxErrorBody)))
	}))
	defer srv.Close()

	err := New(srv.URL).Post(context.Background(), struct{}{})
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if !strings.HasPrefix(err.Error(), "webhook 400: ") || len(err.Error()) > maxErrorBody+len("webhook 400: ") {
		t.Fatalf("error = %.40q... (len %d)", err.Error(), len(err.Error()))
	}
}

func TestConfigured(t *testing.T) {
	if New("").Configured() {
		t.Fatal("empty url reported configured")
	}
	if !New("https://hooks.example").Configured() {
		t.Fatal("url reported unconfigured")
	}
}
