package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telehostca/chatbot-backend/pkg/config"
)

// RedisConfig holds the Redis connection configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	MaxIdleTime  time.Duration
}

// DefaultRedisConfig returns a default configuration for local development
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxIdleTime:  5 * time.Minute,
	}
}

// RedisFromConfig creates a Redis config from the service configuration
func RedisFromConfig(cfg *config.Config) RedisConfig {
	def := DefaultRedisConfig()
	return RedisConfig{
		Host:         cfg.GetDefault("redis.host", def.Host),
		Port:         cfg.GetInt("redis.port", def.Port),
		Password:     cfg.Get("redis.password"),
		DB:           cfg.GetInt("redis.db", def.DB),
		MaxRetries:   cfg.GetInt("redis.max_retries", def.MaxRetries),
		PoolSize:     cfg.GetInt("redis.pool_size", def.PoolSize),
		MinIdleConns: cfg.GetInt("redis.min_idle_conns", def.MinIdleConns),
		MaxIdleTime:  cfg.GetDuration("redis.max_idle_time", def.MaxIdleTime),
	}
}

// Redis represents a Redis client connection pool
type Redis struct {
	client *redis.Client
}

// NewRedis creates a new Redis client using the provided configuration
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxIdleTime: cfg.MaxIdleTime,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// Client returns the underlying Redis client
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Ping checks if the Redis connection is alive
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
