package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Security   SecurityConfig   `mapstructure:"security"`
	Platform   PlatformConfig   `mapstructure:"platform"`
	Session    SessionConfig    `mapstructure:"session"`
	Site       SiteConfig       `mapstructure:"site"`
	Revalidate RevalidateConfig `mapstructure:"revalidate"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Captcha    CaptchaConfig    `mapstructure:"captcha"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		Level:      c.Level,
		Service:    "storefront",
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitGroupConfig `mapstructure:"rate_limit"`
}

// RateLimitGroupConfig 各入口限流配置
type RateLimitGroupConfig struct {
	Contact    RateLimitConfig `mapstructure:"contact"`
	Newsletter RateLimitConfig `mapstructure:"newsletter"`
	Login      RateLimitConfig `mapstructure:"login"`
}

// RateLimitConfig 单条限流规则
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// PlatformConfig 托管电商平台配置
type PlatformConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	AuthURL        string  `mapstructure:"auth_url"`
	ClientID       string  `mapstructure:"client_id"`
	APIKey         string  `mapstructure:"api_key"`
	SiteID         string  `mapstructure:"site_id"`
	StoresAppID    string  `mapstructure:"stores_app_id"`
	MediaBaseURL   string  `mapstructure:"media_base_url"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Timeout 单次请求超时
func (c PlatformConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 12 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig 会话 Cookie 配置
type SessionConfig struct {
	CookieName      string `mapstructure:"cookie_name"`
	MaxAgeDays      int    `mapstructure:"max_age_days"`
	Secret          string `mapstructure:"secret"`
	Secure          bool   `mapstructure:"secure"`
	LoginTTLSeconds int    `mapstructure:"login_ttl_seconds"`
}

// MaxAge Cookie 有效期
func (c SessionConfig) MaxAge() time.Duration {
	days := c.MaxAgeDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// LoginTTL 登录中间态有效期
func (c SessionConfig) LoginTTL() time.Duration {
	if c.LoginTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.LoginTTLSeconds) * time.Second
}

// SiteConfig 站点信息
type SiteConfig struct {
	Name         string `mapstructure:"name"`
	BaseURL      string `mapstructure:"base_url"`
	ThankYouPath string `mapstructure:"thank_you_path"`
	AccountPath  string `mapstructure:"account_path"`
	CallbackPath string `mapstructure:"callback_path"`
}

// URL 拼接站点绝对地址
func (c SiteConfig) URL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// RevalidateConfig 页面缓存重新验证间隔
type RevalidateConfig struct {
	ProductSeconds int `mapstructure:"product_seconds"`
	ListingSeconds int `mapstructure:"listing_seconds"`
	BlogSeconds    int `mapstructure:"blog_seconds"`
	LandingSeconds int `mapstructure:"landing_seconds"`
}

// CatalogConfig 商品分类配置
type CatalogConfig struct {
	Collections []CollectionConfig `mapstructure:"collections"`
}

// CollectionConfig 单个分类
type CollectionConfig struct {
	Slug        string `mapstructure:"slug"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	PlatformID  string `mapstructure:"platform_id"`
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Provider string             `mapstructure:"provider"` // none / image
	Scenes   CaptchaSceneConfig `mapstructure:"scenes"`
	Image    CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	Contact    bool `mapstructure:"contact"`
	Newsletter bool `mapstructure:"newsletter"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// DefaultCollections 默认商品分类
func DefaultCollections() []map[string]string {
	return []map[string]string{
		{
			"slug":        "sillas",
			"name":        "Sillas",
			"description": "Sillas de diseño para restaurantes, cafeterías y espacios de hospitalidad.",
			"platform_id": "1e6161fd-cfbc-4a34-b826-a0d4782faa23",
		},
		{
			"slug":        "mesas",
			"name":        "Mesas",
			"description": "Mesas y bases de estabilidad superior para todo tipo de establecimientos.",
			"platform_id": "b61ed7ad-b30c-4c7e-a3ae-177f0a2994a7",
		},
		{
			"slug":        "conjuntos",
			"name":        "Conjuntos",
			"description": "Conjuntos completos de mobiliario para equipar tu espacio.",
			"platform_id": "10312fa4-6afc-4258-bf01-d24bb61122a5",
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "storefront.log")
	v.SetDefault("log.level", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/storefront.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rm")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default": 5,
		"low":     1,
	})
	v.SetDefault("cors.allowed_origins", []string{"https://restomueble.mx"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.rate_limit.contact.window_seconds", 600)
	v.SetDefault("security.rate_limit.contact.max_requests", 5)
	v.SetDefault("security.rate_limit.newsletter.window_seconds", 600)
	v.SetDefault("security.rate_limit.newsletter.max_requests", 5)
	v.SetDefault("security.rate_limit.login.window_seconds", 300)
	v.SetDefault("security.rate_limit.login.max_requests", 10)
	v.SetDefault("platform.base_url", "https://www.wixapis.com")
	v.SetDefault("platform.auth_url", "https://www.wix.com/oauth2/authorize")
	v.SetDefault("platform.client_id", "")
	v.SetDefault("platform.api_key", "")
	v.SetDefault("platform.site_id", "")
	v.SetDefault("platform.stores_app_id", "1380b703-ce81-ff05-f115-39571d94dfcd")
	v.SetDefault("platform.media_base_url", "https://static.wixstatic.com/media/")
	v.SetDefault("platform.rate_per_second", 20)
	v.SetDefault("platform.burst", 40)
	v.SetDefault("platform.timeout_seconds", 12)
	v.SetDefault("session.cookie_name", "wix_session")
	v.SetDefault("session.max_age_days", 30)
	v.SetDefault("session.secret", "change-me-in-production")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.login_ttl_seconds", 600)
	v.SetDefault("site.name", "Restomueble")
	v.SetDefault("site.base_url", "https://restomueble.mx")
	v.SetDefault("site.thank_you_path", "/gracias")
	v.SetDefault("site.account_path", "/cuenta")
	v.SetDefault("site.callback_path", "/login/callback")
	v.SetDefault("revalidate.product_seconds", 60)
	v.SetDefault("revalidate.listing_seconds", 60)
	v.SetDefault("revalidate.blog_seconds", 300)
	v.SetDefault("revalidate.landing_seconds", 3600)
	v.SetDefault("catalog.collections", DefaultCollections())
	v.SetDefault("captcha.provider", "none")
	v.SetDefault("captcha.scenes.contact", false)
	v.SetDefault("captcha.scenes.newsletter", false)
	v.SetDefault("captcha.image.length", 5)
	v.SetDefault("captcha.image.width", 240)
	v.SetDefault("captcha.image.height", 80)
	v.SetDefault("captcha.image.noise_count", 2)
	v.SetDefault("captcha.image.show_line", 2)
	v.SetDefault("captcha.image.expire_seconds", 300)
	v.SetDefault("captcha.image.max_store", 10240)
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")   // 从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	setDefaults(v)

	// 环境变量支持，server.port -> SERVER_PORT
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config decode failed: %w", err))
	}
	return cfg
}

// Defaults 仅包含默认值的配置，测试与工具使用
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Errorf("config defaults invalid: %w", err))
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Platform.BaseURL = strings.TrimRight(strings.TrimSpace(c.Platform.BaseURL), "/")
	c.Platform.ClientID = strings.TrimSpace(c.Platform.ClientID)
	c.Platform.APIKey = strings.TrimSpace(c.Platform.APIKey)
	c.Platform.SiteID = strings.TrimSpace(c.Platform.SiteID)
	if !strings.HasSuffix(c.Platform.MediaBaseURL, "/") {
		c.Platform.MediaBaseURL += "/"
	}
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	if strings.TrimSpace(c.Session.CookieName) == "" {
		c.Session.CookieName = "wix_session"
	}
	if len(c.Catalog.Collections) == 0 {
		for _, item := range DefaultCollections() {
			c.Catalog.Collections = append(c.Catalog.Collections, CollectionConfig{
				Slug:        item["slug"],
				Name:        item["name"],
				Description: item["description"],
				PlatformID:  item["platform_id"],
			})
		}
	}
}
