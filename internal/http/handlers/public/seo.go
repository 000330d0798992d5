package public

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Sitemap 输出 sitemap.xml
func (h *Handler) Sitemap(c *gin.Context) {
	body, err := h.SEOService.SitemapXML(c.Request.Context())
	if err != nil {
		requestLog(c).Errorw("sitemap_render_failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

// Robots 输出 robots.txt
func (h *Handler) Robots(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.String(http.StatusOK, h.SEOService.RobotsTxt())
}
