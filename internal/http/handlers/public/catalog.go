package public

import (
	"strconv"

	"github.com/restomueble/storefront/internal/http/response"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/variant"

	"github.com/gin-gonic/gin"
)

// ResolveSelectionRequest 选项解析请求
type ResolveSelectionRequest struct {
	Selection variant.Selection `json:"selection"`
}

// GetConfig 获取前台公共配置
func (h *Handler) GetConfig(c *gin.Context) {
	response.Success(c, gin.H{
		"site_name":   h.Config.Site.Name,
		"base_url":    h.Config.Site.URL(""),
		"cookie_name": h.SessionService.CookieName(),
		"collections": h.CatalogService.Collections(),
		"captcha":     h.CaptchaService.PublicSetting(),
	})
}

// GetHome 首页数据
func (h *Handler) GetHome(c *gin.Context) {
	response.Success(c, h.CatalogService.Home(c.Request.Context()))
}

// GetStore 商店页数据
func (h *Handler) GetStore(c *gin.Context) {
	response.Success(c, h.CatalogService.StorePage(c.Request.Context()))
}

// GetProducts 商品列表，平台不可用时返回空列表
func (h *Handler) GetProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(platform.MaxProductPage)))
	products := h.CatalogService.ListProducts(c.Request.Context(), limit)
	response.SuccessWithTotal(c, products, len(products))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	detail, err := h.CatalogService.ProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, detail)
}

// ResolveProductSelection 根据当前选择计算变体、库存与可选项
func (h *Handler) ResolveProductSelection(c *gin.Context) {
	var req ResolveSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	resolution, err := h.CatalogService.ResolveSelection(c.Request.Context(), c.Param("slug"), req.Selection)
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, resolution)
}

// GetCollections 商品分类
func (h *Handler) GetCollections(c *gin.Context) {
	collections := h.CatalogService.Collections()
	response.SuccessWithTotal(c, collections, len(collections))
}

// GetCollectionProducts 分类下的商品
func (h *Handler) GetCollectionProducts(c *gin.Context) {
	page, err := h.CatalogService.ListByCollection(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, page)
}

// GetLanding 城市落地页
func (h *Handler) GetLanding(c *gin.Context) {
	page, err := h.CatalogService.LandingPage(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, page)
}
