// Package ratelimit 提供基于 Redis 的分布式限流（GCRA 算法）
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 限流器抽象，key 粒度由调用方决定（如客户端 IP）
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则：Period 内允许 Rate 次请求，瞬时最多 Burst 次
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// Result 单次限流判定结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter 基于 redis_rate 的 RateLimiter 实现，
// 多实例共享同一 Redis 时限流口径全局一致
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter 创建 Redis 限流器
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{limiter: redis_rate.NewLimiter(rdb)}
}

// Allow 判定 key 在给定规则下是否放行
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: allow %s: %w", key, err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}
