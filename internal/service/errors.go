package service

import "errors"

// 内容查询
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrLandingNotFound    = errors.New("landing not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrContentFetchFailed = errors.New("content fetch failed")
)

// 购物车与结账
var (
	ErrCartQuantityInvalid = errors.New("cart quantity invalid")
	ErrCartProductRequired = errors.New("cart product required")
	ErrCartOptionsRequired = errors.New("cart options required")
	ErrVariantUnavailable  = errors.New("variant unavailable")
	ErrCartAddFailed       = errors.New("cart add failed")
	ErrCartRemoveFailed    = errors.New("cart remove failed")
	ErrCheckoutFailed      = errors.New("checkout failed")
	ErrRequestInFlight     = errors.New("request in flight")
)

// 会话与会员
var (
	ErrSessionRequired    = errors.New("session required")
	ErrSessionUnavailable = errors.New("session unavailable")
	ErrMemberRequired     = errors.New("member required")
	ErrLoginStartFailed   = errors.New("login start failed")
	ErrMemberFetchFailed  = errors.New("member fetch failed")
	ErrOrdersFetchFailed  = errors.New("orders fetch failed")
	ErrOrderNotFound      = errors.New("order not found")
)

// 表单
var (
	ErrNameRequired         = errors.New("name required")
	ErrMessageRequired      = errors.New("message required")
	ErrEmailInvalid         = errors.New("email invalid")
	ErrContactFailed        = errors.New("contact submit failed")
	ErrNewsletterFailed     = errors.New("newsletter subscribe failed")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrPostalCodeInvalid    = errors.New("postal code invalid")
)
