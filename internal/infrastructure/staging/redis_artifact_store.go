// Package staging holds staged receipts between the verify and confirm
// phases of payment completion.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paymentapp "github.com/backoffice/backend/internal/application/payment"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisArtifactStore implements ArtifactStore using Redis. TTL expiry is
// delegated to Redis, so a staged receipt simply stops resolving once its
// window closes. Suitable for deployments with more than one instance.
type RedisArtifactStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisArtifactStore creates a Redis-backed artifact store
func NewRedisArtifactStore(cfg config.RedisConfig) (*RedisArtifactStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisArtifactStore{
		client:    client,
		keyPrefix: "receipt:staged:",
	}, nil
}

// NewRedisArtifactStoreWithClient creates a store with an existing Redis
// client, useful for testing or sharing a client across components
func NewRedisArtifactStoreWithClient(client *redis.Client, keyPrefix string) *RedisArtifactStore {
	if keyPrefix == "" {
		keyPrefix = "receipt:staged:"
	}
	return &RedisArtifactStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Put stores a staged receipt under its reference with a TTL
func (s *RedisArtifactStore) Put(ctx context.Context, artifact *paymentapp.StagedReceipt, ttl time.Duration) error {
	if artifact == nil || artifact.Ref == "" {
		return errors.New("staged receipt with a reference is required")
	}
	if ttl <= 0 {
		return errors.New("staging TTL must be positive")
	}

	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to encode staged receipt: %w", err)
	}

	if err := s.client.Set(ctx, s.keyPrefix+artifact.Ref, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to stage receipt: %w", err)
	}
	return nil
}

// Get resolves a staging reference. Returns (nil, nil) when the reference
// is unknown or has expired.
func (s *RedisArtifactStore) Get(ctx context.Context, ref string) (*paymentapp.StagedReceipt, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+ref).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve staged receipt: %w", err)
	}

	var artifact paymentapp.StagedReceipt
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode staged receipt: %w", err)
	}
	return &artifact, nil
}

// Delete removes a staged receipt. Deleting an absent reference is a no-op.
func (s *RedisArtifactStore) Delete(ctx context.Context, ref string) error {
	if err := s.client.Del(ctx, s.keyPrefix+ref).Err(); err != nil {
		return fmt.Errorf("failed to delete staged receipt: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisArtifactStore) Close() error {
	return s.client.Close()
}

// Ensure RedisArtifactStore implements ArtifactStore
var _ paymentapp.ArtifactStore = (*RedisArtifactStore)(nil)
