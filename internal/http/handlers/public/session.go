package public

import (
	"net/http"

	"github.com/restomueble/storefront/internal/constants"
	handlershared "github.com/restomueble/storefront/internal/http/handlers/shared"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

var loginErrorRules = []mappedHandlerError{
	{target: service.ErrLoginStartFailed, code: response.CodeBadGateway, key: "error.login_start_failed"},
}

// GetSession 当前会话概要；会话本身由中间件保证存在
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{
		"role":       sess.Tokens.Role,
		"is_member":  sess.IsMember(),
		"cart_count": h.CartService.ItemCount(c.Request.Context(), sess),
	})
}

// Login 跳转到平台登录页
func (h *Handler) Login(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	authURL, err := h.SessionService.BeginLogin(c.Request.Context(), sess)
	if err != nil {
		respondWithMappedError(c, err, concatMappedHandlerErrors(loginErrorRules, sessionErrorRules), response.CodeInternal, "error.login_start_failed")
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// LoginCallback 平台登录回调，失败一律回到首页
func (h *Handler) LoginCallback(c *gin.Context) {
	var current *service.Session
	if raw, err := c.Cookie(h.SessionService.CookieName()); err == nil {
		if decoded, err := h.SessionService.Decode(raw); err == nil {
			current = decoded
		}
	}
	sess, redirect := h.SessionService.CompleteLogin(c.Request.Context(), current, c.Query("code"), c.Query("state"))
	if sess != nil {
		if err := handlershared.WriteSessionCookie(c, h.SessionService, sess); err != nil {
			requestLog(c).Errorw("login_session_cookie_write_failed", "error", err)
			redirect = "/"
		} else {
			requestLog(c).Infow("member_login_completed", "session_id", sess.ID)
		}
	}
	c.Redirect(http.StatusFound, h.Config.Site.URL(redirect))
}

// Logout 退出登录并换发访客会话
func (h *Handler) Logout(c *gin.Context) {
	sess := handlershared.SessionFromContext(c)
	fresh, err := h.SessionService.Logout(c.Request.Context(), sess)
	if err != nil {
		respondError(c, response.CodeServiceUnavailable, "error.session_unavailable", err)
		return
	}
	if err := handlershared.WriteSessionCookie(c, h.SessionService, fresh); err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"role": constants.SessionRoleVisitor})
}
