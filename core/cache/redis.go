package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"winetour-api/core/constants"
	"winetour-api/core/logger"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)

	// Login throttling
	IncrementLoginAttempt(ctx context.Context, key string) (int64, error)
	IsLoginBlocked(ctx context.Context, key string) (bool, error)
	ResetLoginAttempts(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg RedisConfig) Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisCache{client: client}
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, constants.RedisKeyBlacklistedToken+tokenID, "1", ttl).Err(); err != nil {
		logger.Error("Cache:BlacklistToken:Error", "error", err)
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (c *redisCache) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	_, err := c.client.Get(ctx, constants.RedisKeyBlacklistedToken+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}

// IncrementLoginAttempt counts a failed login; the counter lives for LoginBlockDuration.
func (c *redisCache) IncrementLoginAttempt(ctx context.Context, key string) (int64, error) {
	redisKey := constants.RedisKeyLoginAttempts + key
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, constants.LoginBlockDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Cache:IncrementLoginAttempt:Error", "error", err)
		return 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}
	return incr.Val(), nil
}

func (c *redisCache) IsLoginBlocked(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Get(ctx, constants.RedisKeyLoginAttempts+key).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get login attempts: %w", err)
	}
	return count >= constants.MaxLoginAttempts, nil
}

func (c *redisCache) ResetLoginAttempts(ctx context.Context, key string) error {
	return c.client.Del(ctx, constants.RedisKeyLoginAttempts+key).Err()
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
