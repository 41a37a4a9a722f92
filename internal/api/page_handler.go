package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"truckyard/internal/page"
)

// PageHandler 处理静态内容页的公开读取与后台管理。
type PageHandler struct {
	pages *page.Service
}

func NewPageHandler(pageService *page.Service) *PageHandler {
	return &PageHandler{pages: pageService}
}

// ListPublished 返回已发布页面，公开接口。
func (h *PageHandler) ListPublished(c *gin.Context) {
	views, err := h.pages.ListPublished(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetPublished 按 slug 返回已发布页面，公开接口。
func (h *PageHandler) GetPublished(c *gin.Context) {
	view, err := h.pages.GetBySlug(c.Request.Context(), c.Param("slug"), true)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListAll 返回全部页面，后台管理用。
func (h *PageHandler) ListAll(c *gin.Context) {
	views, err := h.pages.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Get 按 ID 返回页面，后台管理用。
func (h *PageHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	view, err := h.pages.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Create 新建页面。
func (h *PageHandler) Create(c *gin.Context) {
	var in page.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	view, err := h.pages.Create(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Update 覆盖式更新页面。
func (h *PageHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var in page.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	view, err := h.pages.Update(c.Request.Context(), id, in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete 删除页面。
func (h *PageHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.pages.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
