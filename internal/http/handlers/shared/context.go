package shared

import (
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// SetSession 将会话写入请求上下文。
func SetSession(c *gin.Context, sess *service.Session) {
	c.Set(constants.ContextKeySession, sess)
}

// SessionFromContext 读取会话，不存在时返回 nil。
func SessionFromContext(c *gin.Context) *service.Session {
	value, exists := c.Get(constants.ContextKeySession)
	if !exists {
		return nil
	}
	sess, _ := value.(*service.Session)
	return sess
}

// RequireSession 读取会话并统一处理缺失时的错误响应。
func RequireSession(c *gin.Context) (*service.Session, bool) {
	sess := SessionFromContext(c)
	if sess == nil {
		RespondError(c, response.CodeUnauthorized, "error.session_unavailable", nil)
		return nil, false
	}
	return sess, true
}

// RequestID 当前请求 ID。
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(constants.ContextKeyRequestID)
}
