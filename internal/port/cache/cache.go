// Package cache defines the key-value port behind the corporate memory
// summary and idempotent request replays.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache stores opaque values under string keys.
//
// Get reports a miss as found == false with a nil error. An error means the
// backend could not answer, and callers fall back to the source of truth.
// Set may apply asynchronously. ttl bounds how long a value may be served;
// adapters with a fixed bucket expiry ignore it. Deleting a missing key is
// not an error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds a namespaced key such as "idem:POST:/api/v1/pitches:abc".
// Adapters whose key alphabet excludes ':' encode keys themselves.
func Key(namespace string, parts ...string) string {
	return strings.Join(append([]string{namespace}, parts...), ":")
}
