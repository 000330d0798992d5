package public

import "github.com/restomueble/storefront/internal/provider"

// Handler 前台公开接口处理器入口
// 说明：访客与会员共用，会话由中间件注入。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
