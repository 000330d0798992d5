package public

import (
	"errors"

	handlershared "github.com/restomueble/storefront/internal/http/handlers/shared"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	handlershared.RespondAppError(c, mapHandlerError(err, rules, fallbackCode, fallbackKey))
}

// mapHandlerError 已是 AppError 的直接沿用；命中规则的为预期错误，不携带原始错误
func mapHandlerError(err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) *response.AppError {
	if appErr, ok := response.AsAppError(err); ok {
		return appErr
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return response.NewAppError(rule.code, rule.key, nil)
		}
	}
	return response.NewAppError(fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var contentNotFoundErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrPostNotFound, code: response.CodeNotFound, key: "error.post_not_found"},
	{target: service.ErrLandingNotFound, code: response.CodeNotFound, key: "error.landing_not_found"},
	{target: service.ErrCollectionNotFound, code: response.CodeNotFound, key: "error.collection_not_found"},
}

var sessionErrorRules = []mappedHandlerError{
	{target: service.ErrSessionRequired, code: response.CodeUnauthorized, key: "error.unauthorized"},
	{target: service.ErrSessionUnavailable, code: response.CodeServiceUnavailable, key: "error.session_unavailable"},
	{target: service.ErrRequestInFlight, code: response.CodeConflict, key: "error.request_in_flight"},
}

var cartAddErrorRules = []mappedHandlerError{
	{target: service.ErrCartQuantityInvalid, code: response.CodeBadRequest, key: "error.cart_quantity_invalid"},
	{target: service.ErrCartProductRequired, code: response.CodeBadRequest, key: "error.cart_product_required"},
	{target: service.ErrCartOptionsRequired, code: response.CodeBadRequest, key: "error.cart_options_required"},
	{target: service.ErrVariantUnavailable, code: response.CodeBadRequest, key: "error.variant_unavailable"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrCartAddFailed, code: response.CodeBadGateway, key: "error.cart_add_failed"},
}

var cartRemoveErrorRules = []mappedHandlerError{
	{target: service.ErrCartRemoveFailed, code: response.CodeBadGateway, key: "error.cart_remove_failed"},
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrCheckoutFailed, code: response.CodeBadGateway, key: "error.checkout_failed"},
}

var memberErrorRules = []mappedHandlerError{
	{target: service.ErrMemberRequired, code: response.CodeUnauthorized, key: "error.member_required"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrdersFetchFailed, code: response.CodeBadGateway, key: "error.orders_fetch_failed"},
	{target: service.ErrMemberFetchFailed, code: response.CodeBadGateway, key: "error.member_fetch_failed"},
}

var captchaErrorRules = []mappedHandlerError{
	{target: service.ErrCaptchaRequired, code: response.CodeBadRequest, key: "error.captcha_required"},
	{target: service.ErrCaptchaInvalid, code: response.CodeBadRequest, key: "error.captcha_invalid"},
	{target: service.ErrCaptchaConfigInvalid, code: response.CodeServiceUnavailable, key: "error.captcha_config_invalid"},
}

var formValidationErrorRules = []mappedHandlerError{
	{target: service.ErrNameRequired, code: response.CodeBadRequest, key: "error.name_required"},
	{target: service.ErrMessageRequired, code: response.CodeBadRequest, key: "error.message_required"},
	{target: service.ErrEmailInvalid, code: response.CodeBadRequest, key: "error.email_invalid"},
}

func respondContentError(c *gin.Context, err error) {
	respondWithMappedError(c, err, contentNotFoundErrorRules, response.CodeBadGateway, "error.content_fetch_failed")
}

func respondCartAddError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartAddErrorRules, sessionErrorRules), response.CodeInternal, "error.cart_add_failed")
}

func respondCartRemoveError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartRemoveErrorRules, sessionErrorRules), response.CodeInternal, "error.cart_remove_failed")
}

func respondCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(checkoutErrorRules, sessionErrorRules), response.CodeInternal, "error.checkout_failed")
}

func respondMemberError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(memberErrorRules, sessionErrorRules), response.CodeInternal, "error.internal")
}

func respondContactError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(formValidationErrorRules, captchaErrorRules), response.CodeBadGateway, "error.contact_failed")
}

func respondNewsletterError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(formValidationErrorRules, captchaErrorRules), response.CodeBadGateway, "error.newsletter_failed")
}
