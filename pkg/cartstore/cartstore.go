// Package cartstore holds each visitor's cart blob in one Redis key.
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrEmpty is returned by Load when the visitor has no cart blob.
	ErrEmpty = errors.New("cart slot is empty")
	// ErrContended is returned by Update when other writers kept changing
	// the slot for every attempt.
	ErrContended = errors.New("cart slot is contended")
)

const maxUpdateAttempts = 8

// RedisStore is the visitor key-value slot backed by Redis. Every write
// refreshes the slot TTL.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

func key(visitor string) string {
	return fmt.Sprintf("cart:visitor:%s", visitor)
}

// Load returns the raw blob for visitor, or ErrEmpty.
func (s *RedisStore) Load(ctx context.Context, visitor string) ([]byte, error) {
	blob, err := s.redis.Get(ctx, key(visitor)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return blob, nil
}

// Update is an optimistic read-modify-write of the visitor's blob. fn sees
// the current blob (nil when the slot is empty) and returns the next one; a
// nil result deletes the slot. The write only lands if no other client
// touched the key since the read, otherwise fn runs again on fresh data.
// Errors returned by fn are passed through unchanged.
func (s *RedisStore) Update(ctx context.Context, visitor string, fn func(current []byte) ([]byte, error)) error {
	k := key(visitor)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to load cart: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, k)
				return nil
			}
			pipe.Set(ctx, k, next, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContended
}

// Delete discards the blob; deleting a missing slot is not an error.
func (s *RedisStore) Delete(ctx context.Context, visitor string) error {
	if err := s.redis.Del(ctx, key(visitor)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable, for readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
