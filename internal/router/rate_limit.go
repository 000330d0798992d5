package router

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/restomueble/storefront/internal/cache"
	"github.com/restomueble/storefront/internal/config"
	handlershared "github.com/restomueble/storefront/internal/http/handlers/shared"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Name          string
	WindowSeconds int
	MaxRequests   int
}

// NewRateLimitRule 由配置生成限流规则
func NewRateLimitRule(name string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Name:          name,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxRequests,
	}
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// 固定窗口计数：首次计数时设置过期，返回 {当前计数, 剩余秒数}
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware Redis 频率限制中间件，Redis 未启用时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}
		key := cache.BuildKey("rate:" + rule.Name + ":" + subject)

		count, ttl, err := incrementWindow(c, client, key, rule.WindowSeconds)
		if err != nil {
			handlershared.RequestLog(c).Errorw("rate_limit_check_failed", "rule", rule.Name, "error", err)
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeServiceUnavailable, msg)
			c.Abort()
			return
		}
		if count > int64(rule.MaxRequests) {
			waitSeconds := int(ttl)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			handlershared.RequestLog(c).Infow("rate_limited", "rule", rule.Name, "count", count)
			msg := i18n.Sprintf(i18n.ResolveLocale(c), "error.rate_limited", waitSeconds)
			response.Error(c, response.CodeTooManyRequests, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}

func incrementWindow(c *gin.Context, client *redis.Client, key string, windowSeconds int) (int64, int64, error) {
	values, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, windowSeconds).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, redis.Nil
	}
	return values[0], values[1], nil
}

// rateLimitBinding 规则与 key 生成方式的组合
type rateLimitBinding struct {
	rule    RateLimitRule
	keyFunc RateLimitKeyFunc
}

// newsletterRateLimitBindings 订阅接口同时按 IP 与 IP+邮箱限流，换邮箱无法绕过 IP 限额
func newsletterRateLimitBindings(cfg config.RateLimitConfig) []rateLimitBinding {
	return []rateLimitBinding{
		{rule: NewRateLimitRule("newsletter", cfg), keyFunc: KeyByIP},
		{rule: NewRateLimitRule("newsletter_email", cfg), keyFunc: KeyByIPAndJSONField("email")},
	}
}

func rateLimitHandlers(client *redis.Client, bindings []rateLimitBinding) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(bindings))
	for _, binding := range bindings {
		handlers = append(handlers, RateLimitMiddleware(client, binding.rule, binding.keyFunc))
	}
	return handlers
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// readJSONField 读取 JSON 字段后恢复请求体，后续绑定不受影响
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return strings.TrimSpace(text)
}
