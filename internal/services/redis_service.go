package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisService provides the Redis connection used by the pub/sub push layer
type RedisService struct {
	client *redis.Client
	mu     sync.RWMutex
}

var (
	redisInstance *RedisService
	redisOnce     sync.Once
)

// NewRedisService creates a new Redis service instance
func NewRedisService(redisURL string) (*RedisService, error) {
	var initErr error

	redisOnce.Do(func() {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			initErr = fmt.Errorf("failed to parse Redis URL: %w", err)
			return
		}

		opts.PoolSize = 10
		opts.MinIdleConns = 2
		opts.MaxRetries = 3
		opts.DialTimeout = 5 * time.Second
		opts.ReadTimeout = 3 * time.Second
		opts.WriteTimeout = 3 * time.Second

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("failed to connect to Redis: %w", err)
			return
		}

		redisInstance = &RedisService{
			client: client,
		}

		log.Println("Redis connection established")
	})

	if initErr != nil {
		return nil, initErr
	}

	return redisInstance, nil
}

// Client returns the underlying Redis client
func (r *RedisService) Client() *redis.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks if Redis is healthy
func (r *RedisService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
