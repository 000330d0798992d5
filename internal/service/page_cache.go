package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/restomueble/storefront/internal/cache"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/queue"

	"golang.org/x/sync/singleflight"
)

const (
	// 过期条目在 Redis 中保留的倍数
	pageEntryTTLFactor = 24
	// 合并加载与发起请求的生命周期解绑，单独限时
	pageLoadTimeout = 15 * time.Second
)

// PageLoader 按参数加载一页数据，返回值必须可 JSON 序列化
type PageLoader func(ctx context.Context, arg string) (interface{}, error)

type pageKind struct {
	window time.Duration
	load   PageLoader
}

type pageEntry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// PageCache 页面级读穿缓存
// 新鲜条目直接返回；过期条目照常返回并投递刷新任务；未命中时同步加载
type PageCache struct {
	queue *queue.Client
	group singleflight.Group
	now   func() time.Time

	mu    sync.RWMutex
	kinds map[string]pageKind
}

// NewPageCache 创建页面缓存，queueClient 可为空（此时过期条目同步刷新）
func NewPageCache(queueClient *queue.Client) *PageCache {
	return &PageCache{
		queue: queueClient,
		now:   time.Now,
		kinds: map[string]pageKind{},
	}
}

// Register 注册页面类型的加载器与重新验证间隔
func (p *PageCache) Register(kind string, window time.Duration, loader PageLoader) {
	if window <= 0 {
		window = time.Minute
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds[kind] = pageKind{window: window, load: loader}
}

// Registered 判断页面类型是否已注册
func (p *PageCache) Registered(kind string) bool {
	_, ok := p.kind(kind)
	return ok
}

// Get 读取页面数据并解码到 dest
func (p *PageCache) Get(ctx context.Context, kind, arg string, dest interface{}) error {
	k, ok := p.kind(kind)
	if !ok {
		return fmt.Errorf("page kind %q not registered", kind)
	}
	key := pageKey(kind, arg)

	var entry pageEntry
	hit, err := cache.GetJSON(ctx, key, &entry)
	if err != nil {
		logger.Warnw("page_cache_read_failed", "key", key, "error", err)
		hit = false
	}
	if hit && len(entry.Data) > 0 {
		if p.now().Sub(entry.FetchedAt) < k.window {
			return json.Unmarshal(entry.Data, dest)
		}
		if p.queue.Enabled() {
			p.scheduleRevalidate(kind, arg, k.window)
			return json.Unmarshal(entry.Data, dest)
		}
		fresh, err := p.refresh(ctx, kind, arg, k)
		if err != nil {
			logger.Warnw("page_cache_refresh_failed_serving_stale", "key", key, "error", err)
			return json.Unmarshal(entry.Data, dest)
		}
		return json.Unmarshal(fresh.Data, dest)
	}

	fresh, err := p.refresh(ctx, kind, arg, k)
	if err != nil {
		return err
	}
	return json.Unmarshal(fresh.Data, dest)
}

// Revalidate 重新加载并写回缓存，worker 处理刷新任务时调用
func (p *PageCache) Revalidate(ctx context.Context, kind, arg string) error {
	k, ok := p.kind(kind)
	if !ok {
		return fmt.Errorf("page kind %q not registered", kind)
	}
	_, err := p.refresh(ctx, kind, arg, k)
	return err
}

// Invalidate 删除缓存条目
func (p *PageCache) Invalidate(ctx context.Context, kind, arg string) error {
	return cache.Del(ctx, pageKey(kind, arg))
}

func (p *PageCache) kind(kind string) (pageKind, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	k, ok := p.kinds[kind]
	return k, ok
}

func (p *PageCache) refresh(ctx context.Context, kind, arg string, k pageKind) (*pageEntry, error) {
	key := pageKey(kind, arg)
	ch := p.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pageLoadTimeout)
		defer cancel()
		data, err := k.load(loadCtx, arg)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode page %s failed: %w", key, err)
		}
		entry := &pageEntry{Data: raw, FetchedAt: p.now()}
		if err := cache.SetJSON(loadCtx, key, entry, k.window*pageEntryTTLFactor); err != nil {
			logger.Warnw("page_cache_write_failed", "key", key, "error", err)
		}
		return entry, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pageEntry), nil
	}
}

func (p *PageCache) scheduleRevalidate(kind, arg string, window time.Duration) {
	payload := queue.PageRevalidatePayload{Kind: kind, Arg: arg}
	if err := p.queue.EnqueuePageRevalidate(payload, window); err != nil {
		logger.Warnw("page_revalidate_enqueue_failed", "key", payload.Key(), "error", err)
	}
}

func pageKey(kind, arg string) string {
	return queue.PageRevalidatePayload{Kind: kind, Arg: strings.TrimSpace(arg)}.Key()
}
