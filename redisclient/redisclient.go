package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/config"
	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings for Redis
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewConfigFromEnv reads REDIS_ADDR, REDIS_PASSWORD and REDIS_DB. An empty
// Addr means Redis is not configured.
func NewConfigFromEnv() *Config {
	return &Config{
		Addr:        config.GetEnvOrDefault("REDIS_ADDR", ""),
		Password:    config.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:          config.GetEnvIntOrDefault("REDIS_DB", 0),
		DialTimeout: config.GetEnvDurationOrDefault("REDIS_DIAL_TIMEOUT", 3*time.Second),
	}
}

// Enabled reports whether a Redis address is configured
func (c *Config) Enabled() bool {
	return c.Addr != ""
}

// NewClient creates a client and verifies the connection
func NewClient(cfg *Config) (*redis.Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
