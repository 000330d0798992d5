package public

import (
	"github.com/restomueble/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetProfile 会员资料
func (h *Handler) GetProfile(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	profile, err := h.OrderService.Profile(c.Request.Context(), sess)
	if err != nil {
		respondMemberError(c, err)
		return
	}
	response.Success(c, profile)
}

// GetOrders 会员订单列表
func (h *Handler) GetOrders(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orders, err := h.OrderService.ListOrders(c.Request.Context(), sess)
	if err != nil {
		respondMemberError(c, err)
		return
	}
	response.SuccessWithTotal(c, orders, len(orders))
}

// GetOrder 会员订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondMemberError(c, err)
		return
	}
	response.Success(c, order)
}
