// Package cachetest provides a behavioral test suite for cache.Cache
// implementations.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/Boardroom/internal/port/cache"
)

// Run exercises c against the contract every cache adapter must honor.
// settle is called after each write for adapters that apply writes
// asynchronously; it may be nil.
func Run(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "pitch:tree:1", []byte("tree"), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "pitch:tree:1")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != "tree" {
			t.Fatalf("expected tree, got %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "nonexistent-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "memory:summary", []byte("lessons"), time.Minute)
		settle()
		if err := c.Delete(ctx, "memory:summary"); err != nil {
			t.Fatal(err)
		}
		settle()
		_, found, err := c.Get(ctx, "memory:summary")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "idem:POST:/api/v1/pitches:k1", []byte("v1"), time.Minute)
		settle()
		_ = c.Set(ctx, "idem:POST:/api/v1/pitches:k1", []byte("v2"), time.Minute)
		settle()
		val, found, err := c.Get(ctx, "idem:POST:/api/v1/pitches:k1")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}
