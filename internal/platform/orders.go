package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/models"
)

// OrderLineItem 订单行项目
type OrderLineItem struct {
	ID             string       `json:"id"`
	ProductName    string       `json:"product_name"`
	Quantity       int          `json:"quantity"`
	Price          models.Money `json:"price"`
	FormattedPrice string       `json:"formatted_price"`
	Image          string       `json:"image"`
}

// PriceSummary 订单金额汇总（已格式化）
type PriceSummary struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// Order 会员订单
type Order struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	CreatedAt         *time.Time      `json:"created_at"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Currency          string          `json:"currency"`
	LineItems         []OrderLineItem `json:"line_items"`
	PriceSummary      PriceSummary    `json:"price_summary"`
}

type rawOrder struct {
	ID                string        `json:"id"`
	Number            string        `json:"number"`
	CreatedDate       string        `json:"createdDate"`
	Status            string        `json:"status"`
	PaymentStatus     string        `json:"paymentStatus"`
	FulfillmentStatus string        `json:"fulfillmentStatus"`
	Currency          string        `json:"currency"`
	LineItems         []rawLineItem `json:"lineItems"`
	PriceSummary      *struct {
		Subtotal *rawAmount `json:"subtotal,omitempty"`
		Shipping *rawAmount `json:"shipping,omitempty"`
		Tax      *rawAmount `json:"tax,omitempty"`
		Total    *rawAmount `json:"total,omitempty"`
	} `json:"priceSummary,omitempty"`
}

// SearchOrders 查询当前会员的订单，按创建时间倒序
func (c *Client) SearchOrders(ctx context.Context, token string, limit int) ([]Order, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var resp struct {
		Orders []rawOrder `json:"orders"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/ecom/v1/orders/search", bearer(token), map[string]interface{}{
		"search": map[string]interface{}{
			"cursorPaging": map[string]int{"limit": limit},
			"sort":         []map[string]string{{"fieldName": "createdDate", "order": "DESC"}},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(resp.Orders))
	for _, raw := range resp.Orders {
		out = append(out, c.normalizeOrder(raw))
	}
	return out, nil
}

// GetOrder 读取单个订单
func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*Order, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	var resp struct {
		Order *rawOrder `json:"order"`
	}
	endpoint := "/ecom/v1/orders/" + url.PathEscape(strings.TrimSpace(orderID))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, bearer(token), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "order not found"}
	}
	order := c.normalizeOrder(*resp.Order)
	return &order, nil
}

func (c *Client) normalizeOrder(raw rawOrder) Order {
	order := Order{
		ID:                raw.ID,
		Number:            raw.Number,
		Status:            raw.Status,
		PaymentStatus:     raw.PaymentStatus,
		FulfillmentStatus: raw.FulfillmentStatus,
		Currency:          raw.Currency,
		LineItems:         make([]OrderLineItem, 0, len(raw.LineItems)),
	}
	if raw.CreatedDate != "" {
		if t, err := time.Parse(time.RFC3339, raw.CreatedDate); err == nil {
			order.CreatedAt = &t
		}
	}
	for _, item := range raw.LineItems {
		line := OrderLineItem{
			ID:       item.ID,
			Quantity: item.Quantity,
			Image:    c.MediaURL(string(item.Image)),
		}
		if item.ProductName != nil {
			line.ProductName = firstNonEmpty(item.ProductName.Translated, item.ProductName.Original)
		}
		if price, ok := item.Price.money(); ok {
			line.Price = price
		}
		line.FormattedPrice = item.Price.formatted()
		order.LineItems = append(order.LineItems, line)
	}
	if raw.PriceSummary != nil {
		order.PriceSummary = PriceSummary{
			Subtotal: raw.PriceSummary.Subtotal.formatted(),
			Shipping: raw.PriceSummary.Shipping.formatted(),
			Tax:      raw.PriceSummary.Tax.formatted(),
			Total:    raw.PriceSummary.Total.formatted(),
		}
	}
	return order
}
