package worker

import (
	"context"
	"fmt"

	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/provider"
	"github.com/restomueble/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPageRevalidate, c.handlePageRevalidate)
}

// handlePageRevalidate 重新加载过期的页面数据并写回缓存
// 载荷非法或页面类型未注册时不重试；加载失败返回错误交给 asynq 重试
func (c *Consumer) handlePageRevalidate(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || c.PageCache == nil || task == nil {
		logger.Debugw("worker_page_revalidate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePageRevalidatePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_page_revalidate_payload_invalid", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if !c.PageCache.Registered(payload.Kind) {
		logger.Warnw("worker_page_revalidate_kind_unknown", "key", payload.Key())
		return fmt.Errorf("%w: page kind %q not registered", asynq.SkipRetry, payload.Kind)
	}
	if err := c.PageCache.Revalidate(ctx, payload.Kind, payload.Arg); err != nil {
		logger.Warnw("worker_page_revalidate_failed", "key", payload.Key(), "error", err)
		return err
	}
	logger.Debugw("worker_page_revalidated", "key", payload.Key())
	return nil
}
