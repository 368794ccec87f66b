package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Queue on a Redis list: LPUSH on ingest, BRPOP on consume,
// so events drain oldest-first.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, redisURL, key string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client, key: key}, nil
}

// Close closes the Redis connection.
func (q *Redis) Close() error {
	return q.client.Close()
}

// Ping checks the Redis connection.
func (q *Redis) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Push appends one serialized event to the head of the list.
func (q *Redis) Push(ctx context.Context, payload []byte) error {
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Pop blocks for at most timeout waiting for the oldest queued event.
// A timeout is not an error: both results are nil.
func (q *Redis) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Peek returns the most recently pushed event without removing it, or nil
// when the queue is empty. Used by the gateway debug endpoint.
func (q *Redis) Peek(ctx context.Context) ([]byte, error) {
	val, err := q.client.LIndex(ctx, q.key, 0).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(val), nil
}
