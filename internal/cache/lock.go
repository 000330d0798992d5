package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 仅当 value 匹配时删除，避免误删他人续上的锁
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 以 SET NX PX 抢占短锁；Redis 未启用时返回 enabled=false，由调用方自行兜底
func TryLock(ctx context.Context, key string, ttl time.Duration) (acquired bool, release func(), enabled bool, err error) {
	noop := func() {}
	if !Enabled() {
		return false, noop, false, nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	fullKey := buildKey(key)
	ok, err := redisClient.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return false, noop, true, err
	}
	if !ok {
		return false, noop, true, nil
	}
	return true, func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseLockScript.Run(releaseCtx, redisClient, []string{fullKey}, token).Err()
	}, true, nil
}
