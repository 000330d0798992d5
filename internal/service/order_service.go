package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/platform"
)

const memberOrderLimit = 20

// 订单状态展示文案，未知状态直接展示原值
var orderStatusLabels = map[string]string{
	"PENDING":             "Pendiente",
	"APPROVED":            "Aprobado",
	"CANCELED":            "Cancelado",
	"FULFILLED":           "Enviado",
	"PARTIALLY_FULFILLED": "En proceso",
	"NOT_FULFILLED":       "Preparando",
}

// MemberOrder 会员订单（响应用）
type MemberOrder struct {
	platform.Order
	StatusKey   string `json:"status_key"`
	StatusLabel string `json:"status_label"`
	CreatedDate string `json:"created_date"`
	ItemCount   int    `json:"item_count"`
}

// MemberProfile 会员资料（响应用）
type MemberProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Nickname    string `json:"nickname"`
	MemberSince string `json:"member_since"`
}

// OrderService 会员订单服务
type OrderService struct {
	platform *platform.Client
	sessions *SessionService
}

// NewOrderService 创建订单服务
func NewOrderService(client *platform.Client, sessions *SessionService) *OrderService {
	return &OrderService{platform: client, sessions: sessions}
}

// OrderStatusKey 履约状态优先，其次支付状态，默认 PENDING
func OrderStatusKey(order platform.Order) string {
	for _, v := range []string{order.FulfillmentStatus, order.PaymentStatus} {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return strings.ToUpper(trimmed)
		}
	}
	return "PENDING"
}

// OrderStatusLabel 状态展示文案
func OrderStatusLabel(key string) string {
	if label, ok := orderStatusLabels[key]; ok {
		return label
	}
	return key
}

// ListOrders 当前会员最近的订单
func (s *OrderService) ListOrders(ctx context.Context, sess *Session) ([]MemberOrder, error) {
	if !sess.IsMember() {
		return nil, ErrMemberRequired
	}
	orders, err := s.platform.SearchOrders(ctx, sess.Tokens.AccessToken, memberOrderLimit)
	if err != nil {
		logger.Warnw("member_orders_fetch_failed", "session_id", sess.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrOrdersFetchFailed, err)
	}
	out := make([]MemberOrder, 0, len(orders))
	for _, order := range orders {
		out = append(out, toMemberOrder(order))
	}
	return out, nil
}

// GetOrder 订单详情
func (s *OrderService) GetOrder(ctx context.Context, sess *Session, orderID string) (*MemberOrder, error) {
	if !sess.IsMember() {
		return nil, ErrMemberRequired
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.platform.GetOrder(ctx, sess.Tokens.AccessToken, orderID)
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		logger.Warnw("member_order_fetch_failed", "session_id", sess.ID, "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrOrdersFetchFailed, err)
	}
	out := toMemberOrder(*order)
	return &out, nil
}

// Profile 当前会员资料
func (s *OrderService) Profile(ctx context.Context, sess *Session) (*MemberProfile, error) {
	member, err := s.sessions.CurrentMember(ctx, sess)
	if err != nil {
		return nil, err
	}
	profile := &MemberProfile{
		ID:          member.ID,
		DisplayName: member.DisplayName(),
		Email:       member.Email,
		Nickname:    member.Nickname,
	}
	if member.CreatedAt != nil {
		profile.MemberSince = formatSpanishDate(*member.CreatedAt)
	}
	return profile, nil
}

func toMemberOrder(order platform.Order) MemberOrder {
	key := OrderStatusKey(order)
	out := MemberOrder{
		Order:       order,
		StatusKey:   key,
		StatusLabel: OrderStatusLabel(key),
	}
	if order.CreatedAt != nil {
		out.CreatedDate = formatSpanishDate(*order.CreatedAt)
	}
	for _, item := range order.LineItems {
		out.ItemCount += item.Quantity
	}
	return out
}
