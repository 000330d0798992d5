package public

import (
	"github.com/restomueble/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetPosts 博客文章列表
func (h *Handler) GetPosts(c *gin.Context) {
	posts := h.BlogService.ListPosts(c.Request.Context())
	response.SuccessWithTotal(c, posts, len(posts))
}

// GetPost 博客文章详情
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.BlogService.PostBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondContentError(c, err)
		return
	}
	response.Success(c, post)
}
