package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/Boardroom/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplay         = "Idempotent-Replay"
	maxReplayBody        = 1 << 20
)

// snapshot is the stored form of a completed response.
type snapshot struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (s *snapshot) writeTo(w http.ResponseWriter) {
	for name, values := range s.Header {
		w.Header()[name] = values
	}
	w.Header().Set(headerReplay, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// Idempotency replays the stored response when a mutating request repeats
// its Idempotency-Key on the same method and path. Only 2xx responses are
// stored, so a failed pitch submission or vote can be retried with the same key.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerIdempotencyKey)
			if key == "" || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			slot := cache.Key("idem", r.Method, r.URL.Path, key)

			if snap := lookupSnapshot(r.Context(), c, slot); snap != nil {
				snap.writeTo(w)
				return
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status/100 != 2 || cw.body.Len() > maxReplayBody {
				return
			}
			storeSnapshot(r.Context(), c, slot, ttl, &snapshot{
				Status: cw.status,
				Header: w.Header().Clone(),
				Body:   cw.body.Bytes(),
			})
		})
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func lookupSnapshot(ctx context.Context, c cache.Cache, slot string) *snapshot {
	raw, ok, err := c.Get(ctx, slot)
	if err != nil {
		slog.WarnContext(ctx, "idempotency lookup failed", "slot", slot, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		slog.WarnContext(ctx, "idempotency entry unreadable", "slot", slot, "error", err)
		return nil
	}
	return &snap
}

func storeSnapshot(ctx context.Context, c cache.Cache, slot string, ttl time.Duration, snap *snapshot) {
	raw, err := json.Marshal(snap)
	if err == nil {
		err = c.Set(ctx, slot, raw, ttl)
	}
	if err != nil {
		slog.WarnContext(ctx, "idempotency store failed", "slot", slot, "error", err)
	}
}

// captureWriter tees the response so it can be stored after the handler returns.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.body.Write(b)
	return cw.ResponseWriter.Write(b)
}
