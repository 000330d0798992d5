package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/restomueble/storefront/internal/models"
)

// CatalogReference 购物车行项目指向的商品
type CatalogReference struct {
	CatalogItemID string                 `json:"catalogItemId"`
	AppID         string                 `json:"appId"`
	Options       map[string]interface{} `json:"options,omitempty"`
}

// LineItemInput 加入购物车的行项目
type LineItemInput struct {
	CatalogReference CatalogReference `json:"catalogReference"`
	Quantity         int              `json:"quantity"`
}

// LineItem 归一化后的购物车行项目
type LineItem struct {
	ID             string       `json:"id"`
	CatalogItemID  string       `json:"catalog_item_id"`
	VariantID      string       `json:"variant_id,omitempty"`
	Quantity       int          `json:"quantity"`
	ProductName    string       `json:"product_name"`
	Price          models.Money `json:"price"`
	FormattedPrice string       `json:"formatted_price"`
	Image          string       `json:"image"`
}

// Cart 归一化后的购物车；Subtotal 为空时由调用方按行项目计算
type Cart struct {
	ID                string       `json:"id"`
	Currency          string       `json:"currency"`
	LineItems         []LineItem   `json:"line_items"`
	Subtotal          models.Money `json:"subtotal"`
	FormattedSubtotal string       `json:"formatted_subtotal"`
	HasSubtotal       bool         `json:"-"`
}

type rawCartEnvelope struct {
	Cart *rawCart `json:"cart"`
}

type rawCart struct {
	ID        string        `json:"id"`
	Currency  string        `json:"currency"`
	LineItems []rawLineItem `json:"lineItems"`
	Subtotal  *rawAmount    `json:"subtotal,omitempty"`
}

type rawLineItem struct {
	ID               string `json:"id"`
	Quantity         int    `json:"quantity"`
	CatalogReference *struct {
		CatalogItemID string                 `json:"catalogItemId"`
		Options       map[string]interface{} `json:"options,omitempty"`
	} `json:"catalogReference,omitempty"`
	ProductName *struct {
		Original   string `json:"original"`
		Translated string `json:"translated"`
	} `json:"productName,omitempty"`
	Price *rawAmount `json:"price,omitempty"`
	Image flexImage  `json:"image"`
}

// flexImage 兼容字符串与 {url} 两种图片写法
type flexImage string

func (f *flexImage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexImage(s)
		return nil
	}
	var obj struct {
		URL string `json:"url"`
		ID  string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	*f = flexImage(firstNonEmpty(obj.URL, obj.ID))
	return nil
}

type rawAmount struct {
	Amount                   string `json:"amount"`
	ConvertedAmount          string `json:"convertedAmount"`
	FormattedAmount          string `json:"formattedAmount"`
	FormattedConvertedAmount string `json:"formattedConvertedAmount"`
}

func (a *rawAmount) money() (models.Money, bool) {
	if a == nil {
		return models.Money{}, false
	}
	raw := firstNonEmpty(a.ConvertedAmount, a.Amount)
	if raw == "" {
		return models.Money{}, false
	}
	m, err := models.ParseMoney(raw)
	if err != nil {
		return models.Money{}, false
	}
	return m, true
}

func (a *rawAmount) formatted() string {
	if a == nil {
		return ""
	}
	return firstNonEmpty(a.FormattedConvertedAmount, a.FormattedAmount)
}

// GetCurrentCart 读取当前 token 对应的购物车
func (c *Client) GetCurrentCart(ctx context.Context, token string) (*Cart, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	var resp rawCartEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/ecom/v1/carts/current", bearer(token), nil, &resp); err != nil {
		return nil, err
	}
	return c.normalizeCart(resp.Cart), nil
}

// AddToCurrentCart 向当前购物车追加行项目，平台在首次加购时创建购物车
func (c *Client) AddToCurrentCart(ctx context.Context, token string, items []LineItemInput) (*Cart, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	var resp rawCartEnvelope
	err := c.doJSON(ctx, http.MethodPost, "/ecom/v1/carts/current/add-to-cart", bearer(token), map[string]interface{}{
		"lineItems": items,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.normalizeCart(resp.Cart), nil
}

// RemoveLineItems 从当前购物车移除行项目
func (c *Client) RemoveLineItems(ctx context.Context, token string, lineItemIDs []string) error {
	if strings.TrimSpace(token) == "" {
		return ErrTokenRequired
	}
	return c.doJSON(ctx, http.MethodPost, "/ecom/v1/carts/current/remove-line-items", bearer(token), map[string]interface{}{
		"lineItemIds": lineItemIDs,
	}, nil)
}

// CreateCheckout 由当前购物车创建结账单，返回 checkoutId
func (c *Client) CreateCheckout(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrTokenRequired
	}
	var resp struct {
		CheckoutID string `json:"checkoutId"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/ecom/v1/carts/current/create-checkout", bearer(token), map[string]string{
		"channelType": "WEB",
	}, &resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.CheckoutID) == "" {
		return "", ErrResponseInvalid
	}
	return resp.CheckoutID, nil
}

func (c *Client) normalizeCart(raw *rawCart) *Cart {
	cart := &Cart{LineItems: []LineItem{}}
	if raw == nil {
		return cart
	}
	cart.ID = raw.ID
	cart.Currency = raw.Currency
	if subtotal, ok := raw.Subtotal.money(); ok {
		cart.Subtotal = subtotal
		cart.HasSubtotal = true
	}
	cart.FormattedSubtotal = raw.Subtotal.formatted()
	for _, item := range raw.LineItems {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		line := LineItem{
			ID:       item.ID,
			Quantity: item.Quantity,
			Image:    c.MediaURL(string(item.Image)),
		}
		if item.CatalogReference != nil {
			line.CatalogItemID = item.CatalogReference.CatalogItemID
			if id, ok := item.CatalogReference.Options["variantId"].(string); ok {
				line.VariantID = id
			}
		}
		if item.ProductName != nil {
			line.ProductName = firstNonEmpty(item.ProductName.Translated, item.ProductName.Original)
		}
		if price, ok := item.Price.money(); ok {
			line.Price = price
		}
		line.FormattedPrice = item.Price.formatted()
		cart.LineItems = append(cart.LineItems, line)
	}
	return cart
}
