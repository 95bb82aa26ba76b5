package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxClients caps the number of tracked clients. New clients are refused
// while the table is full.
const maxClients = 50000

// RateLimiter is a per-client token bucket. Boardroom mounts it in front of
// routes that spend agent calls, such as pitch generation.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokens
	perSec  float64
	burst   float64
}

type tokens struct {
	left     float64
	refilled time.Time
}

// NewRateLimiter allows perSec requests per second per client with bursts
// up to burst. A non-positive perSec disables limiting.
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*tokens),
		perSec:  perSec,
		burst:   float64(max(burst, 1)),
	}
}

// Handler enforces the limit and reports the remaining budget in
// X-RateLimit-Remaining.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl.perSec <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		left, wait, ok := rl.take(clientIP(r), time.Now())
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(left))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) take(client string, now time.Time) (left int, wait time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, found := rl.clients[client]
	if !found {
		if len(rl.clients) >= maxClients {
			return 0, time.Duration(float64(time.Second) / rl.perSec), false
		}
		b = &tokens{left: rl.burst, refilled: now}
		rl.clients[client] = b
	}

	b.left = min(rl.burst, b.left+now.Sub(b.refilled).Seconds()*rl.perSec)
	b.refilled = now
	if b.left < 1 {
		return 0, time.Duration((1 - b.left) / rl.perSec * float64(time.Second)), false
	}
	b.left--
	return int(b.left), 0, true
}

// StartCleanup forgets clients idle for longer than maxIdle, checking every
// interval, until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.forget(now.Add(-maxIdle))
			}
		}
	}()
}

func (rl *RateLimiter) forget(before time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, b := range rl.clients {
		if b.refilled.Before(before) {
			delete(rl.clients, client)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientIP uses RemoteAddr only; forwarded headers are client-controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
