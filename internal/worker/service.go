package worker

import (
	"context"
	"errors"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/queue"
	"github.com/restomueble/storefront/internal/repository"

	"github.com/hibiken/asynq"
)

const (
	pendingLoginCleanupInterval = 5 * time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// CleanupService 定期清理过期的登录中间态，不依赖队列
type CleanupService struct {
	pending  repository.PendingLoginRepository
	interval time.Duration
	now      func() time.Time
}

// NewCleanupService 创建清理服务
func NewCleanupService(pending repository.PendingLoginRepository, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = pendingLoginCleanupInterval
	}
	return &CleanupService{pending: pending, interval: interval, now: time.Now}
}

// Name 服务名称
func (s *CleanupService) Name() string {
	return "pending_login_cleanup"
}

// Start 立即清理一次，之后按间隔执行直到 ctx 结束
func (s *CleanupService) Start(ctx context.Context) error {
	if s == nil || s.pending == nil {
		return errors.New("cleanup service not initialized")
	}
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runOnce()
		}
	}
}

// Stop 由 Start 的 ctx 控制退出
func (s *CleanupService) Stop(ctx context.Context) error {
	return nil
}

func (s *CleanupService) runOnce() int64 {
	removed, err := s.pending.DeleteExpired(s.now())
	if err != nil {
		logger.Warnw("worker_pending_login_cleanup_failed", "error", err)
		return 0
	}
	if removed > 0 {
		logger.Infow("worker_pending_login_cleaned", "removed", removed)
	}
	return removed
}
