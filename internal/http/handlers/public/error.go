package public

import (
	handlershared "github.com/restomueble/storefront/internal/http/handlers/shared"
	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func currentSession(c *gin.Context) (*service.Session, bool) {
	return handlershared.RequireSession(c)
}
