package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// incrWithTTL 自增计数键并在首次创建时设置过期时间。
// 用于登录限速等固定窗口计数，窗口边界由键名携带。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// 过期设置失败不影响计数结果，键最终会被覆盖或手动清理。
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
