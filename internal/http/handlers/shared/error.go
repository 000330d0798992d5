package shared

import (
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/i18n"
	"github.com/restomueble/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := RequestID(c); id != "" {
		return logger.SW(constants.ContextKeyRequestID, id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondAppError(c, response.NewAppError(code, key, err))
}

// RespondAppError 按请求语言输出 AppError。
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	msg := i18n.T(i18n.ResolveLocale(c), appErr.Key)
	if appErr.Err != nil {
		log := RequestLog(c)
		if appErr.Internal() {
			log.Errorw("handler_error", "code", appErr.Code, "key", appErr.Key, "error", appErr.Err)
		} else {
			log.Warnw("handler_error", "code", appErr.Code, "key", appErr.Key, "error", appErr.Err)
		}
	}
	response.Error(c, appErr.Code, msg)
}
