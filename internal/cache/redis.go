// Package cache keeps assembled brackets in Redis between writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "bracket:"

	// generationTTL outlives any single read; an expired counter only costs one skipped store.
	generationTTL = 24 * time.Hour
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at url (redis:// or rediss://)
// and checks it responds.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func key(tournamentID uuid.UUID) string {
	return keyPrefix + tournamentID.String()
}

// generationKey counts invalidations of a tournament's bracket.
func generationKey(tournamentID uuid.UUID) string {
	return key(tournamentID) + ":gen"
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, g getter, tournamentID uuid.UUID) (int64, error) {
	n, err := g.Get(ctx, generationKey(tournamentID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// GetBracket reports false on a miss.
func (c *RedisCache) GetBracket(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Stage, bool, error) {
	raw, err := c.client.Get(ctx, key(tournamentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stages []bracket.Stage
	if err := json.Unmarshal(raw, &stages); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached bracket: %w", err)
	}
	return stages, true, nil
}

// BracketVersion returns the invalidation generation to pass to SetBracket.
func (c *RedisCache) BracketVersion(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	return generation(ctx, c.client, tournamentID)
}

// SetBracket stores stages only if no invalidation happened since version was
// read. A skipped store is not an error.
func (c *RedisCache) SetBracket(ctx context.Context, tournamentID uuid.UUID, version int64, stages []bracket.Stage) error {
	raw, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("failed to encode bracket: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(tournamentID), raw, c.ttl)
			return nil
		})
		return err
	}, generationKey(tournamentID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// InvalidateBracket drops the cached bracket and bumps its generation.
func (c *RedisCache) InvalidateBracket(ctx context.Context, tournamentID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(tournamentID))
		pipe.Expire(ctx, generationKey(tournamentID), generationTTL)
		pipe.Del(ctx, key(tournamentID))
		return nil
	})
	return err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
