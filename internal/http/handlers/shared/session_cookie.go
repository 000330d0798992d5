package shared

import (
	"net/http"

	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// WriteSessionCookie 编码会话写入 Cookie，并同步到请求上下文。
// Cookie 需要前端脚本可读，因此不设置 HttpOnly。
func WriteSessionCookie(c *gin.Context, sessions *service.SessionService, sess *service.Session) error {
	value, err := sessions.Encode(sess)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessions.CookieName(), value, int(sessions.MaxAge().Seconds()), "/", "", sessions.Secure(), false)
	SetSession(c, sess)
	return nil
}
