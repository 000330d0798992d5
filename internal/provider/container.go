package provider

import (
	"errors"
	"net/http"

	"github.com/restomueble/storefront/internal/cache"
	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/queue"
	"github.com/restomueble/storefront/internal/repository"
	"github.com/restomueble/storefront/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Platform    *platform.Client

	// Repositories
	PendingLoginRepo      repository.PendingLoginRepository
	ContactSubmissionRepo repository.ContactSubmissionRepository

	// Services
	PageCache       *service.PageCache
	CMSService      *service.CMSService
	CatalogService  *service.CatalogService
	BlogService     *service.BlogService
	SessionService  *service.SessionService
	CartEvents      *service.CartEvents
	InFlightGuard   *service.InFlightGuard
	CartService     *service.CartService
	OrderService    *service.OrderService
	ContactService  *service.ContactService
	CaptchaService  *service.CaptchaService
	ShippingService *service.ShippingService
	SEOService      *service.SEOService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	client := platform.NewClient(cfg.Platform, &http.Client{Timeout: cfg.Platform.Timeout()})
	return Assemble(cfg, models.DB, client, queueClient)
}

// Assemble 基于已有依赖组装容器，queueClient 可为空
func Assemble(cfg *config.Config, db *gorm.DB, client *platform.Client, queueClient *queue.Client) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, errors.New("database is nil")
	}
	if client == nil {
		return nil, errors.New("platform client is nil")
	}
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Platform:    client,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.PendingLoginRepo = repository.NewPendingLoginRepository(db)
	c.ContactSubmissionRepo = repository.NewContactSubmissionRepository(db)
}

func (c *Container) initServices() error {
	cfg := c.Config
	c.PageCache = service.NewPageCache(c.QueueClient)
	c.CMSService = service.NewCMSService(c.Platform, c.PageCache, cfg.Revalidate)
	c.CatalogService = service.NewCatalogService(c.Platform, c.PageCache, c.CMSService, cfg.Catalog, cfg.Revalidate)
	c.BlogService = service.NewBlogService(c.Platform, c.PageCache, cfg.Revalidate)

	sessionService, err := service.NewSessionService(c.Platform, c.PendingLoginRepo, cfg.Session, cfg.Site)
	if err != nil {
		logger.Errorw("provider_init_session_failed", "error", err)
		return err
	}
	c.SessionService = sessionService

	c.CartEvents = service.NewCartEvents()
	c.InFlightGuard = service.NewInFlightGuard(0)
	c.CartService = service.NewCartService(c.Platform, c.CatalogService, c.CartEvents, c.InFlightGuard, cfg.Site)
	c.OrderService = service.NewOrderService(c.Platform, c.SessionService)
	c.ContactService = service.NewContactService(c.Platform, c.ContactSubmissionRepo)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
	c.ShippingService = service.NewShippingService()
	c.SEOService = service.NewSEOService(cfg.Site, c.CatalogService, c.BlogService, c.CMSService)
	return nil
}
