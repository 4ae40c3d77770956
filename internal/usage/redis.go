package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "usage:"
	dayLayout = "2006-01-02"

	fieldRequests = "requests"
	fieldTokens   = "total_tokens"
)

// Daily is the aggregate for one model on one UTC day.
type Daily struct {
	Model       string `json:"model"`
	Date        string `json:"date"`
	Requests    int64  `json:"requests"`
	TotalTokens int64  `json:"total_tokens"`
}

// RedisCounter keeps per-model daily counters in a Redis hash.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCounter connects and pings Redis.
func NewRedisCounter(addr, password string, ttl time.Duration) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisCounterFromClient(client, ttl), nil
}

// NewRedisCounterFromClient wraps an existing client.
func NewRedisCounterFromClient(client *redis.Client, ttl time.Duration) *RedisCounter {
	return &RedisCounter{client: client, ttl: ttl}
}

func dailyKey(model string, day time.Time) string {
	return keyPrefix + model + ":" + day.UTC().Format(dayLayout)
}

func (c *RedisCounter) Record(ctx context.Context, ev Event) error {
	at := ev.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	key := dailyKey(ev.Model, at)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldRequests, 1)
		pipe.HIncrBy(ctx, key, fieldTokens, int64(ev.TotalTokens))
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	return err
}

// Daily reads the counters for model on the UTC day containing day.
// Missing keys read as zero.
func (c *RedisCounter) Daily(ctx context.Context, model string, day time.Time) (Daily, error) {
	out := Daily{Model: model, Date: day.UTC().Format(dayLayout)}
	vals, err := c.client.HGetAll(ctx, dailyKey(model, day)).Result()
	if err != nil {
		return out, err
	}
	if out.Requests, err = parseCount(vals[fieldRequests]); err != nil {
		return out, fmt.Errorf("parse %s: %w", fieldRequests, err)
	}
	if out.TotalTokens, err = parseCount(vals[fieldTokens]); err != nil {
		return out, fmt.Errorf("parse %s: %w", fieldTokens, err)
	}
	return out, nil
}

func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Close closes the Redis connection.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}
