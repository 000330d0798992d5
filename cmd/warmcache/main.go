package main

import (
	"context"
	"flag"
	"time"

	"github.com/restomueble/storefront/internal/cache"
	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/provider"

	"github.com/joho/godotenv"
)

// 部署后预热页面缓存：首页、商店页、分类、商品详情、文章与落地页
func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "整体超时")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	c, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	defer func() { _ = cache.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.CatalogService.Home(ctx)
	c.CatalogService.StorePage(ctx)
	for _, collection := range c.CatalogService.Collections() {
		if _, err := c.CatalogService.ListByCollection(ctx, collection.Slug); err != nil {
			logger.Warnw("warm_collection_failed", "slug", collection.Slug, "error", err)
		}
	}

	products := c.CatalogService.ListProducts(ctx, platform.MaxProductPage)
	warmed := 0
	for _, product := range products {
		if product.Slug == "" {
			continue
		}
		if _, err := c.CatalogService.ProductBySlug(ctx, product.Slug); err != nil {
			logger.Warnw("warm_product_failed", "slug", product.Slug, "error", err)
			continue
		}
		warmed++
	}

	posts := c.BlogService.ListPosts(ctx)
	for _, post := range posts {
		if _, err := c.BlogService.PostBySlug(ctx, post.Slug); err != nil {
			logger.Warnw("warm_post_failed", "slug", post.Slug, "error", err)
		}
	}

	landings := c.CMSService.AllLandings(ctx)
	for _, landing := range landings {
		if _, err := c.CatalogService.LandingPage(ctx, landing.Slug); err != nil {
			logger.Warnw("warm_landing_failed", "slug", landing.Slug, "error", err)
		}
	}

	logger.Infow("warm_cache_done",
		"products", warmed,
		"posts", len(posts),
		"landings", len(landings),
	)
}
