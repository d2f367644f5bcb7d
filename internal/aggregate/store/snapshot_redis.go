package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"velum/internal/aggregate/models"
	id "velum/pkg/domain"
	"velum/pkg/platform/sentinel"
)

const (
	// Redis key prefix for count snapshots
	snapshotKeyPrefix = "velum:snapshot:"

	defaultSnapshotTTL = 24 * time.Hour
)

// RedisSnapshotStore is the Redis-backed snapshot cache for distributed
// deployments where multiple instances serve reads.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisSnapshotOption configures a RedisSnapshotStore instance.
type RedisSnapshotOption func(*RedisSnapshotStore)

// WithTTL overrides the snapshot expiry.
func WithTTL(ttl time.Duration) RedisSnapshotOption {
	return func(s *RedisSnapshotStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisSnapshotStore constructs a Redis-backed snapshot cache.
func NewRedisSnapshotStore(client *redis.Client, opts ...RedisSnapshotOption) *RedisSnapshotStore {
	s := &RedisSnapshotStore{
		client: client,
		ttl:    defaultSnapshotTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func snapshotKey(category id.Category) string {
	return snapshotKeyPrefix + category.String()
}

// Put stores the latest snapshot for its category with TTL.
func (s *RedisSnapshotStore) Put(ctx context.Context, snapshot models.CountSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(snapshot.Category), payload, s.ttl).Err()
}

// Get returns the latest snapshot for the category.
func (s *RedisSnapshotStore) Get(ctx context.Context, category id.Category) (models.CountSnapshot, error) {
	raw, err := s.client.Get(ctx, snapshotKey(category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CountSnapshot{}, fmt.Errorf("no snapshot for category %s: %w", category, sentinel.ErrNotFound)
	}
	if err != nil {
		return models.CountSnapshot{}, err
	}

	var snapshot models.CountSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.CountSnapshot{}, fmt.Errorf("could not decode snapshot: %w", err)
	}
	return snapshot, nil
}

// GetMany returns the snapshots present for the given categories using one
// pipelined round trip. Missing categories are simply absent from the result.
func (s *RedisSnapshotStore) GetMany(ctx context.Context, categories []id.Category) (map[id.Category]models.CountSnapshot, error) {
	if len(categories) == 0 {
		return map[id.Category]models.CountSnapshot{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[id.Category]*redis.StringCmd, len(categories))
	for _, category := range categories {
		cmds[category] = pipe.Get(ctx, snapshotKey(category))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	found := make(map[id.Category]models.CountSnapshot, len(categories))
	for category, cmd := range cmds {
		raw, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var snapshot models.CountSnapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return nil, fmt.Errorf("could not decode snapshot for %s: %w", category, err)
		}
		found[category] = snapshot
	}
	return found, nil
}
