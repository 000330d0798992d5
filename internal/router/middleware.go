package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	handlershared "github.com/restomueble/storefront/internal/http/handlers/shared"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/i18n"
	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Language",
			"Cache-Control",
			"X-Requested-With",
			requestIDHeader,
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			constants.ContextKeyRequestID, handlershared.RequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if sess := handlershared.SessionFromContext(c); sess != nil {
			log = log.With("session_id", sess.ID, "role", sess.Tokens.Role)
		}
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

// SessionMiddleware 保证每个请求都带有可用会话
// 没有合法 Cookie 时申请访客 token；access token 过期时续期，变更后写回 Cookie
func SessionMiddleware(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.session_unavailable"))
			c.Abort()
			return
		}
		ctx := c.Request.Context()
		raw, _ := c.Cookie(sessions.CookieName())

		sess, issued, err := sessions.EnsureSession(ctx, raw)
		if err != nil {
			abortSessionUnavailable(c, err)
			return
		}
		sess, refreshed, err := sessions.Refresh(ctx, sess)
		if err != nil {
			abortSessionUnavailable(c, err)
			return
		}
		if issued || refreshed {
			if err := handlershared.WriteSessionCookie(c, sessions, sess); err != nil {
				abortSessionUnavailable(c, err)
				return
			}
		} else {
			handlershared.SetSession(c, sess)
		}
		c.Next()
	}
}

func abortSessionUnavailable(c *gin.Context, err error) {
	handlershared.RequestLog(c).Warnw("session_middleware_failed", "error", err)
	response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.session_unavailable"))
	c.Abort()
}

// MemberRequiredMiddleware 仅允许会员会话
func MemberRequiredMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !handlershared.SessionFromContext(c).IsMember() {
			response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), "error.member_required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
