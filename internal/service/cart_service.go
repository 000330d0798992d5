package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/variant"

	"github.com/shopspring/decimal"
)

// Cart 购物车（响应用）
type Cart struct {
	ID                string              `json:"id"`
	Currency          string              `json:"currency"`
	LineItems         []platform.LineItem `json:"line_items"`
	Subtotal          models.Money        `json:"subtotal"`
	FormattedSubtotal string              `json:"formatted_subtotal"`
	ItemCount         int                 `json:"item_count"`
}

// AddItemInput 加购输入
type AddItemInput struct {
	ProductID string
	Quantity  int
	Selection variant.Selection
}

// CartService 购物车服务，远端当前购物车的薄封装
type CartService struct {
	platform *platform.Client
	catalog  *CatalogService
	events   *CartEvents
	guard    *InFlightGuard
	site     config.SiteConfig
}

// NewCartService 创建购物车服务
func NewCartService(client *platform.Client, catalog *CatalogService, events *CartEvents, guard *InFlightGuard, site config.SiteConfig) *CartService {
	return &CartService{
		platform: client,
		catalog:  catalog,
		events:   events,
		guard:    guard,
		site:     site,
	}
}

// FetchCurrentCart 读取当前购物车，任何远端错误都降级为空购物车
func (s *CartService) FetchCurrentCart(ctx context.Context, sess *Session) (*Cart, error) {
	if sess == nil {
		return nil, ErrSessionRequired
	}
	raw, err := s.platform.GetCurrentCart(ctx, sess.Tokens.AccessToken)
	if err != nil {
		if platform.IsCartNotFound(err) || platform.IsNotFound(err) {
			logger.Debugw("cart_fetch_empty", "session_id", sess.ID)
		} else {
			logger.Warnw("cart_fetch_failed_degraded", "session_id", sess.ID, "error", err)
		}
		return emptyCart(), nil
	}
	return buildCart(raw), nil
}

// ItemCount 购物车商品件数，失败时为 0
func (s *CartService) ItemCount(ctx context.Context, sess *Session) int {
	cart, err := s.FetchCurrentCart(ctx, sess)
	if err != nil {
		return 0
	}
	return cart.ItemCount
}

// AddItem 加入购物车并返回最新购物车
func (s *CartService) AddItem(ctx context.Context, sess *Session, input AddItemInput) (*Cart, error) {
	if sess == nil {
		return nil, ErrSessionRequired
	}
	if input.Quantity < 1 {
		return nil, ErrCartQuantityInvalid
	}
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, ErrCartProductRequired
	}

	release, err := s.guard.Acquire(ctx, sess.ID, constants.InFlightActionAddToCart)
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.catalog.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrCartAddFailed, err)
	}
	options, err := lineItemOptions(product.Resolver(), cleanSelection(input.Selection))
	if err != nil {
		return nil, err
	}

	_, err = s.platform.AddToCurrentCart(ctx, sess.Tokens.AccessToken, []platform.LineItemInput{{
		CatalogReference: platform.CatalogReference{
			CatalogItemID: product.ID,
			AppID:         s.platform.Config().StoresAppID,
			Options:       options,
		},
		Quantity: input.Quantity,
	}})
	if err != nil {
		logger.Warnw("cart_add_failed",
			"session_id", sess.ID,
			"product_id", product.ID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrCartAddFailed, err)
	}
	s.events.Publish(sess.ID)
	return s.FetchCurrentCart(ctx, sess)
}

// RemoveItem 移除行项目；行项目已不存在视为成功
func (s *CartService) RemoveItem(ctx context.Context, sess *Session, lineItemID string) (*Cart, error) {
	if sess == nil {
		return nil, ErrSessionRequired
	}
	lineItemID = strings.TrimSpace(lineItemID)
	if lineItemID == "" {
		return nil, ErrCartProductRequired
	}
	err := s.platform.RemoveLineItems(ctx, sess.Tokens.AccessToken, []string{lineItemID})
	if err != nil && !platform.IsNotFound(err) {
		logger.Warnw("cart_remove_failed",
			"session_id", sess.ID,
			"line_item_id", lineItemID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrCartRemoveFailed, err)
	}
	s.events.Publish(sess.ID)
	return s.FetchCurrentCart(ctx, sess)
}

// BeginCheckout 创建结账单与托管结账跳转地址；任一步失败都不返回部分结果
func (s *CartService) BeginCheckout(ctx context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", ErrSessionRequired
	}
	release, err := s.guard.Acquire(ctx, sess.ID, constants.InFlightActionCheckout)
	if err != nil {
		return "", err
	}
	defer release()

	checkoutID, err := s.platform.CreateCheckout(ctx, sess.Tokens.AccessToken)
	if err != nil {
		logger.Warnw("checkout_create_failed", "session_id", sess.ID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	thankYou := s.site.URL(s.site.ThankYouPath)
	url, err := s.platform.CreateCheckoutRedirect(ctx, sess.Tokens.AccessToken, checkoutID, platform.CheckoutCallbacks{
		PostFlowURL:     thankYou,
		ThankYouPageURL: thankYou,
	})
	if err != nil {
		logger.Warnw("checkout_redirect_failed",
			"session_id", sess.ID,
			"checkout_id", checkoutID,
			"error", err,
		)
		return "", fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	if strings.TrimSpace(url) == "" {
		return "", ErrCheckoutFailed
	}
	return url, nil
}

// lineItemOptions 按变体解析结果决定加购参数
// 匹配到变体时传 variantId；商品有选项但没有变体数据时原样传选项，由平台裁决
func lineItemOptions(resolver *variant.Resolver, sel variant.Selection) (map[string]interface{}, error) {
	if !resolver.HasOptions() {
		return nil, nil
	}
	if !resolver.AllOptionsSelected(sel) {
		return nil, ErrCartOptionsRequired
	}
	if !resolver.EffectiveInStock(sel) {
		return nil, ErrVariantUnavailable
	}
	if matched := resolver.MatchedVariant(sel); matched != nil {
		return map[string]interface{}{"variantId": matched.ID}, nil
	}
	raw := make(map[string]string, len(sel))
	for name, value := range sel {
		raw[name] = value
	}
	return map[string]interface{}{"options": raw}, nil
}

func cleanSelection(sel variant.Selection) variant.Selection {
	out := variant.Selection{}
	for name, value := range sel {
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	return out
}

func emptyCart() *Cart {
	return &Cart{
		LineItems:         []platform.LineItem{},
		Subtotal:          models.NewMoneyFromInt(0),
		FormattedSubtotal: models.NewMoneyFromInt(0).Format("$"),
	}
}

// buildCart 平台未返回小计时按单价 × 数量累加
func buildCart(raw *platform.Cart) *Cart {
	if raw == nil {
		return emptyCart()
	}
	cart := &Cart{
		ID:                raw.ID,
		Currency:          raw.Currency,
		LineItems:         raw.LineItems,
		Subtotal:          raw.Subtotal,
		FormattedSubtotal: raw.FormattedSubtotal,
	}
	if cart.LineItems == nil {
		cart.LineItems = []platform.LineItem{}
	}
	sum := decimal.Zero
	for _, item := range cart.LineItems {
		cart.ItemCount += item.Quantity
		sum = sum.Add(item.Price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !raw.HasSubtotal {
		cart.Subtotal = models.NewMoneyFromDecimal(sum)
		cart.FormattedSubtotal = ""
	}
	if cart.FormattedSubtotal == "" {
		cart.FormattedSubtotal = cart.Subtotal.Format("$")
	}
	return cart
}
