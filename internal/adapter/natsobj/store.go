// Package natsobj implements the asset store port on a NATS JetStream
// Object Store bucket.
package natsobj

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Store keeps generated assets (images) keyed by execution.
type Store struct {
	obs jetstream.ObjectStore
}

// New wraps an object store bucket.
func New(obs jetstream.ObjectStore) *Store {
	return &Store{obs: obs}
}

// PutAsset writes data under key, replacing any previous object.
func (s *Store) PutAsset(ctx context.Context, key string, data []byte, contentType string) error {
	meta := jetstream.ObjectMeta{
		Name:    key,
		Headers: nats.Header{},
	}
	if contentType != "" {
		meta.Headers.Set("Content-Type", contentType)
	}
	if _, err := s.obs.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("put asset %s: %w", key, err)
	}
	return nil
}

// GetAsset reads the object stored under key.
func (s *Store) GetAsset(ctx context.Context, key string) ([]byte, error) {
	data, err := s.obs.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, fmt.Errorf("get asset %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get asset %s: %w", key, err)
	}
	return data, nil
}
