package public

import (
	"io"
	"time"

	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/service"
	"github.com/restomueble/storefront/internal/variant"

	"github.com/gin-gonic/gin"
)

const (
	cartUpdatedEvent    = "cart-updated"
	cartEventsHeartbeat = 25 * time.Second
)

// CartItemRequest 加购请求
type CartItemRequest struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Selection variant.Selection `json:"selection"`
}

// GetCart 获取当前购物车，远端异常时为空购物车
func (h *Handler) GetCart(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	cart, err := h.CartService.FetchCurrentCart(c.Request.Context(), sess)
	if err != nil {
		respondWithMappedError(c, err, sessionErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, cart)
}

// GetCartCount 头部角标数量
func (h *Handler) GetCartCount(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{"count": h.CartService.ItemCount(c.Request.Context(), sess)})
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	cart, err := h.CartService.AddItem(c.Request.Context(), sess, service.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Selection: req.Selection,
	})
	if err != nil {
		respondCartAddError(c, err)
		return
	}
	response.Success(c, cart)
}

// RemoveCartItem 移除购物车行
func (h *Handler) RemoveCartItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	cart, err := h.CartService.RemoveItem(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondCartRemoveError(c, err)
		return
	}
	response.Success(c, cart)
}

// Checkout 创建结账并返回平台结账地址
func (h *Handler) Checkout(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	url, err := h.CartService.BeginCheckout(c.Request.Context(), sess)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	response.Success(c, gin.H{"checkout_url": url})
}

// StreamCartEvents 以 SSE 推送购物车变更信号，客户端收到后重新拉取
func (h *Handler) StreamCartEvents(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	events, cancel := h.CartEvents.Subscribe(sess.ID)
	defer cancel()
	heartbeat := time.NewTicker(cartEventsHeartbeat)
	defer heartbeat.Stop()
	ctx := c.Request.Context()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case _, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(cartUpdatedEvent, gin.H{})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{})
			return true
		}
	})
	requestLog(c).Debugw("cart_events_stream_closed", "session_id", sess.ID)
}
