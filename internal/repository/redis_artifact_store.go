package repository

import (
	"context"
	"errors"
	"fmt"

	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/pkg/cache"
)

// RedisArtifactStore keeps the artifact under one key. A single SET replaces
// the previous value atomically.
type RedisArtifactStore struct {
	cache cache.Service
	key   string
}

var _ domrepo.ArtifactStore = (*RedisArtifactStore)(nil)

func NewRedisArtifactStore(c cache.Service, key string) *RedisArtifactStore {
	return &RedisArtifactStore{cache: c, key: key}
}

func (s *RedisArtifactStore) Location() string { return "redis://" + s.key }

func (s *RedisArtifactStore) Save(ctx context.Context, blob []byte) error {
	if err := s.cache.Set(ctx, s.key, blob, 0); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

func (s *RedisArtifactStore) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	if err := s.cache.Get(ctx, s.key, &blob); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return blob, nil
}
