package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"truckyard/internal/api/middleware"
	"truckyard/internal/catalog"
)

// CategoryHandler 处理分类的查询与管理。
type CategoryHandler struct {
	catalog *catalog.Service
}

func NewCategoryHandler(catalogService *catalog.Service) *CategoryHandler {
	return &CategoryHandler{catalog: catalogService}
}

// List 返回全部分类。
func (h *CategoryHandler) List(c *gin.Context) {
	views, err := h.catalog.List(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("list categories failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Get 按 ID 返回单个分类。
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	view, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Create 新建分类。
func (h *CategoryHandler) Create(c *gin.Context) {
	var in catalog.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	view, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Delete 删除分类。仍被车辆引用时拒绝。
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseIDParam 解析路径中的 :id，非法时直接写出 400。
func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
