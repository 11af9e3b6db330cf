// Package messaging publishes JSON messages over Redis pub/sub.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient publishes JSON-encoded messages to Redis channels.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

type redisClient struct {
	client *redis.Client
}

// Dial connects to Redis and verifies the connection. The pool can be
// shared with other Redis users, e.g. distributed locks.
func Dial(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// WrapRedisClient shares an existing connection pool.
func WrapRedisClient(client *redis.Client) RedisClient {
	return &redisClient{client: client}
}

func (r *redisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
