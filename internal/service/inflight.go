package service

import (
	"context"
	"sync"
	"time"

	"github.com/restomueble/storefront/internal/cache"
	"github.com/restomueble/storefront/internal/logger"
)

const defaultInFlightTTL = 30 * time.Second

// InFlightGuard 同一会话同一动作的并发防重
// 优先使用 Redis 短锁，Redis 未启用时退化为进程内锁
type InFlightGuard struct {
	ttl time.Duration

	mu    sync.Mutex
	local map[string]struct{}
}

// NewInFlightGuard 创建防重守卫
func NewInFlightGuard(ttl time.Duration) *InFlightGuard {
	if ttl <= 0 {
		ttl = defaultInFlightTTL
	}
	return &InFlightGuard{ttl: ttl, local: map[string]struct{}{}}
}

// Acquire 抢占锁；已有进行中的请求时返回 ErrRequestInFlight
// 返回的 release 必须在请求结束时调用
func (g *InFlightGuard) Acquire(ctx context.Context, sessionID, action string) (func(), error) {
	key := "inflight:" + action + ":" + sessionID
	acquired, release, enabled, err := cache.TryLock(ctx, key, g.ttl)
	if err != nil {
		logger.Warnw("inflight_lock_failed_fallback_local", "key", key, "error", err)
	} else if enabled {
		if !acquired {
			return func() {}, ErrRequestInFlight
		}
		return release, nil
	}
	return g.acquireLocal(key)
}

func (g *InFlightGuard) acquireLocal(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.local[key]; busy {
		return func() {}, ErrRequestInFlight
	}
	g.local[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.local, key)
			g.mu.Unlock()
		})
	}, nil
}
