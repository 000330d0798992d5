package router

import (
	"net/http"
	"strings"

	"github.com/restomueble/storefront/internal/cache"
	"github.com/restomueble/storefront/internal/config"
	publichandlers "github.com/restomueble/storefront/internal/http/handlers/public"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/i18n"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

const defaultCallbackPath = "/login/callback"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	h := publichandlers.New(c)
	redisClient := cache.Client()
	contactRule := NewRateLimitRule("contact", cfg.Security.RateLimit.Contact)
	newsletterLimits := rateLimitHandlers(redisClient, newsletterRateLimitBindings(cfg.Security.RateLimit.Newsletter))
	loginRule := NewRateLimitRule("login", cfg.Security.RateLimit.Login)
	session := SessionMiddleware(c.SessionService)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, i18n.T(i18n.ResolveLocale(ctx), "error.not_found"))
	})
	r.GET("/healthz", func(ctx *gin.Context) {
		redisStatus := "disabled"
		if cache.Enabled() {
			redisStatus = "ok"
			if err := cache.Ping(ctx.Request.Context()); err != nil {
				redisStatus = "down"
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "redis": redisStatus})
	})

	// SEO
	r.GET("/sitemap.xml", h.Sitemap)
	r.GET("/robots.txt", h.Robots)

	// 登录回调（平台跳回站点域名）
	callbackPath := strings.TrimSpace(cfg.Site.CallbackPath)
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = defaultCallbackPath
	}
	r.GET(callbackPath, h.LoginCallback)

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口，无需会话
		public := apiV1.Group("/public")
		{
			public.GET("/config", h.GetConfig)
			public.GET("/home", h.GetHome)
			public.GET("/store", h.GetStore)
			public.GET("/products", h.GetProducts)
			public.GET("/products/:slug", h.GetProduct)
			public.POST("/products/:slug/resolve", h.ResolveProductSelection)
			public.GET("/collections", h.GetCollections)
			public.GET("/collections/:slug/products", h.GetCollectionProducts)
			public.GET("/landings/:slug", h.GetLanding)
			public.GET("/posts", h.GetPosts)
			public.GET("/posts/:slug", h.GetPost)
			public.GET("/shipping/quote", h.QuoteShipping)
			public.GET("/captcha/image", h.GetImageCaptcha)
			public.POST("/contact", RateLimitMiddleware(redisClient, contactRule, KeyByIP), h.SubmitContact)
			public.POST("/newsletter", append(newsletterLimits, h.Subscribe)...)
		}

		// 会话接口（访客与会员）
		sessioned := apiV1.Group("")
		sessioned.Use(session)
		{
			sessioned.POST("/session", h.GetSession)
			sessioned.GET("/cart", h.GetCart)
			sessioned.GET("/cart/count", h.GetCartCount)
			sessioned.GET("/cart/events", h.StreamCartEvents)
			sessioned.POST("/cart/items", h.AddCartItem)
			sessioned.DELETE("/cart/items/:id", h.RemoveCartItem)
			sessioned.POST("/cart/checkout", h.Checkout)
			sessioned.GET("/auth/login", RateLimitMiddleware(redisClient, loginRule, KeyByIP), h.Login)
			sessioned.POST("/auth/logout", h.Logout)
		}

		// 会员接口
		member := apiV1.Group("/me")
		member.Use(session, MemberRequiredMiddleware())
		{
			member.GET("", h.GetProfile)
			member.GET("/orders", h.GetOrders)
			member.GET("/orders/:id", h.GetOrder)
		}
	}

	return r
}
