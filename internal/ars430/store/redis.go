// Package store caches the most recent sensor state in Redis so other
// services on the vehicle network can read it without talking to the
// decoder's HTTP API.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
	"github.com/banshee-data/ars430.report/internal/monitoring"
)

const (
	keyLatestStatus = "ars430:status:latest"
	keyLatestBatch  = "ars430:batch:latest:%s" // per category
	keyBatchCount   = "ars430:batch:count:%s"

	// Sensor state older than this is stale; let it expire.
	cacheTTL = 10 * time.Minute
)

// Store writes the latest status and batch snapshots to Redis. It satisfies
// the pipeline's publisher interface so it can sit in the fan-out alongside
// the database recorder.
type Store struct {
	rdb *redis.Client
}

// NewStore connects to Redis at addr and verifies the connection with a ping.
func NewStore(ctx context.Context, addr string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	monitoring.Logf("redis cache connected at %s (db %d)", addr, db)
	return &Store{rdb: rdb}, nil
}

// PublishStatus caches the decoded status frame as JSON.
func (s *Store) PublishStatus(status *ars430.Status) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := s.rdb.Set(context.Background(), keyLatestStatus, payload, cacheTTL).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", keyLatestStatus, err)
	}
	return nil
}

// PublishBatch caches the batch as JSON under its category key and bumps the
// per-category batch counter.
func (s *Store) PublishBatch(b *batch.Batch) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	ctx := context.Background()
	key := fmt.Sprintf(keyLatestBatch, b.Category)
	if err := s.rdb.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	if err := s.rdb.Incr(ctx, fmt.Sprintf(keyBatchCount, b.Category)).Err(); err != nil {
		return fmt.Errorf("redis INCR batch count: %w", err)
	}
	return nil
}

// LatestStatus reads back the cached status frame, if any.
func (s *Store) LatestStatus(ctx context.Context) (*ars430.Status, error) {
	payload, err := s.rdb.Get(ctx, keyLatestStatus).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", keyLatestStatus, err)
	}
	var status ars430.Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached status: %w", err)
	}
	return &status, nil
}

// LatestBatch reads back the cached batch for a category, if any.
func (s *Store) LatestBatch(ctx context.Context, cat batch.Category) (*batch.Batch, error) {
	key := fmt.Sprintf(keyLatestBatch, cat)
	payload, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	var b batch.Batch
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached batch: %w", err)
	}
	return &b, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}
