package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQuizTTL keeps a generated quiz retrievable long enough to finish
// a study session.
const DefaultQuizTTL = 24 * time.Hour

// Cache stores generated quizzes between the generation request and the
// answer submissions that follow.
type Cache interface {
	Save(ctx context.Context, q *Quiz) error
	Get(ctx context.Context, id uuid.UUID) (*Quiz, error)
}

// RedisCache is the Redis-backed Cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a quiz cache. A non-positive ttl falls back to
// DefaultQuizTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultQuizTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func quizKey(id uuid.UUID) string {
	return "quiz:" + id.String()
}

func (c *RedisCache) Save(ctx context.Context, q *Quiz) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(q.ID), raw, c.ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, id uuid.UUID) (*Quiz, error) {
	raw, err := c.client.Get(ctx, quizKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	var q Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	return &q, nil
}
