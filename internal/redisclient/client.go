package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"frontdesk-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// AcquireLock acquires a distributed lock. Used as a double-submit guard
// around payment submission for a checkout session.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// CacheBoardSnapshot stores the last loaded board state. Terminals that
// reconnect can render from the snapshot before the full DB load returns.
func (c *Client) CacheBoardSnapshot(ctx context.Context, groups []models.AppointmentGroup, ttl time.Duration) error {
	payload, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to marshal board snapshot: %w", err)
	}
	return c.rdb.Set(ctx, "board:snapshot", payload, ttl).Err()
}

// GetBoardSnapshot retrieves the cached board state, if any
func (c *Client) GetBoardSnapshot(ctx context.Context) ([]models.AppointmentGroup, error) {
	payload, err := c.rdb.Get(ctx, "board:snapshot").Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var groups []models.AppointmentGroup
	if err := json.Unmarshal(payload, &groups); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board snapshot: %w", err)
	}
	return groups, nil
}
