package public

import (
	"errors"

	"github.com/restomueble/storefront/internal/constants"
	handlershared "github.com/restomueble/storefront/internal/http/handlers/shared"
	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/i18n"
	"github.com/restomueble/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// ContactRequest 联系表单请求
type ContactRequest struct {
	Nombre         string                              `json:"nombre"`
	Email          string                              `json:"email"`
	Telefono       string                              `json:"telefono"`
	Servicio       string                              `json:"servicio"`
	Mensaje        string                              `json:"mensaje"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// NewsletterRequest 订阅请求
type NewsletterRequest struct {
	Email          string                              `json:"email"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// SubmitContact 提交联系表单
func (h *Handler) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.CaptchaService.Verify(constants.CaptchaSceneContact, req.CaptchaPayload.ToServicePayload()); err != nil {
		respondWithMappedError(c, err, captchaErrorRules, response.CodeBadRequest, "error.captcha_invalid")
		return
	}
	err := h.ContactService.SubmitContact(c.Request.Context(), service.ContactInput{
		Name:      req.Nombre,
		Email:     req.Email,
		Phone:     req.Telefono,
		Service:   req.Servicio,
		Message:   req.Mensaje,
		ClientIP:  c.ClientIP(),
		RequestID: handlershared.RequestID(c),
	})
	if err != nil {
		respondContactError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Subscribe 订阅邮件通讯
func (h *Handler) Subscribe(c *gin.Context) {
	var req NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.CaptchaService.Verify(constants.CaptchaSceneNewsletter, req.CaptchaPayload.ToServicePayload()); err != nil {
		respondWithMappedError(c, err, captchaErrorRules, response.CodeBadRequest, "error.captcha_invalid")
		return
	}
	err := h.ContactService.Subscribe(c.Request.Context(), service.NewsletterInput{
		Email:     req.Email,
		ClientIP:  c.ClientIP(),
		RequestID: handlershared.RequestID(c),
	})
	if err != nil {
		respondNewsletterError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaConfigInvalid):
			respondError(c, response.CodeBadRequest, "error.captcha_config_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}

	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

// QuoteShipping 按邮编估算运费
func (h *Handler) QuoteShipping(c *gin.Context) {
	quote, err := h.ShippingService.Quote(c.Query("postal_code"))
	if err != nil {
		if errors.Is(err, service.ErrPostalCodeInvalid) {
			respondError(c, response.CodeBadRequest, "error.postal_code_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	locale := i18n.ResolveLocale(c)
	label := i18n.T(locale, "shipping.zone."+quote.Zone)
	costLabel := quote.Cost.Format("$")
	if quote.Free {
		costLabel = i18n.T(locale, "shipping.free")
	}
	response.Success(c, gin.H{
		"quote":      quote,
		"zone_label": label,
		"cost_label": costLabel,
	})
}
