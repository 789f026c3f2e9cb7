package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginLimiter counts login attempts per key inside a fixed window.
type LoginLimiter interface {
	// Allow records one attempt and reports whether it is within the limit.
	Allow(ctx context.Context, key string) bool
	Reset(ctx context.Context, key string)
}

const defaultLoginWindow = 5 * time.Minute

// RedisLimiter is a fixed-window counter. Redis errors let the attempt through.
type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	prefix      string
	logger      *zap.Logger
}

// NewRedisLimiter returns a limiter, or a no-op limiter when client is nil or
// maxAttempts is not positive.
func NewRedisLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) LoginLimiter {
	if client == nil || maxAttempts <= 0 {
		return NoopLimiter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = defaultLoginWindow
	}
	return &RedisLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
		prefix:      "login_attempts",
		logger:      logger,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + ":" + strings.ToLower(strings.TrimSpace(key))
}

// Allow seeds the counter with its TTL and increments it in one MULTI, so a
// counted key always expires.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	k := l.key(key)
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return true
	}
	return incr.Val() <= l.maxAttempts
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}

// NoopLimiter allows every attempt.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) bool { return true }
func (NoopLimiter) Reset(context.Context, string)      {}
