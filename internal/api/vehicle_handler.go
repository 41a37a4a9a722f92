package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"truckyard/internal/api/middleware"
	"truckyard/internal/media"
	"truckyard/internal/vehicle"
)

// VehicleHandler 处理车辆的公开查询与后台管理。
type VehicleHandler struct {
	vehicles *vehicle.Service
	media    *media.Service
}

func NewVehicleHandler(vehicleService *vehicle.Service, mediaService *media.Service) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicleService, media: mediaService}
}

// List 返回带过滤条件的车辆分页。
func (h *VehicleHandler) List(c *gin.Context) {
	filters := vehicle.Filters{
		Category: c.Query("category"),
		MinPrice: queryInt64(c, "minPrice"),
		MaxPrice: queryInt64(c, "maxPrice"),
		MinYear:  queryInt(c, "minYear"),
		MaxYear:  queryInt(c, "maxYear"),
		Page:     queryIntOr(c, "page", 0),
		PageSize: queryIntOr(c, "pageSize", 0),
	}

	result, err := h.vehicles.List(c.Request.Context(), filters)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list vehicles failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get 返回单辆车的完整视图。
func (h *VehicleHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	view, err := h.vehicles.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Search 全文检索车辆。空查询返回空列表。
func (h *VehicleHandler) Search(c *gin.Context) {
	views, err := h.vehicles.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		middleware.LoggerFromContext(c).Error("search vehicles failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Related 返回同分类的其他车辆。
func (h *VehicleHandler) Related(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	views, err := h.vehicles.Related(c.Request.Context(), id, queryIntOr(c, "limit", 0))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Create 新建车辆。
func (h *VehicleHandler) Create(c *gin.Context) {
	var in vehicle.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	view, err := h.vehicles.Create(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Update 覆盖式更新车辆。
func (h *VehicleHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var in vehicle.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	view, err := h.vehicles.Update(c.Request.Context(), id, in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete 删除车辆。图片元数据级联删除，对象存储里的
// 二进制资产在删除成功后尽力清理。
func (h *VehicleHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	keys, err := h.media.VehicleObjectKeys(ctx, id)
	if err != nil {
		middleware.LoggerFromContext(c).Error("collect vehicle blobs failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	if err := h.vehicles.Delete(ctx, id); err != nil {
		RespondError(c, err)
		return
	}

	h.media.RemoveBlobs(ctx, keys)
	c.Status(http.StatusNoContent)
}

func queryInt64(c *gin.Context, name string) *int64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryInt(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func queryIntOr(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
