package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"truckyard/internal/api/middleware"
	"truckyard/internal/inquiry"
)

// InquiryHandler 处理咨询的公开提交与后台管理。
type InquiryHandler struct {
	inquiries *inquiry.Service
}

func NewInquiryHandler(inquiryService *inquiry.Service) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiryService}
}

type createInquiryRequest struct {
	inquiry.Input
	// 蜜罐字段，表单机器人会填，真实客户端不渲染。
	Website string `json:"website"`
}

// Create 受理公开提交的咨询。蜜罐字段非空时假装成功，不落库。
func (h *InquiryHandler) Create(c *gin.Context) {
	var req createInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	if req.Website != "" {
		middleware.LoggerFromContext(c).Info("honeypot triggered, dropping inquiry",
			slog.String("client_ip", c.ClientIP()),
		)
		c.Status(http.StatusCreated)
		return
	}

	view, err := h.inquiries.Create(c.Request.Context(), req.Input, middleware.GetCorrelationID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List 返回咨询分页，后台管理用。
func (h *InquiryHandler) List(c *gin.Context) {
	filters := inquiry.Filters{
		Status:   c.Query("status"),
		Page:     queryIntOr(c, "page", 0),
		PageSize: queryIntOr(c, "pageSize", 0),
	}
	if raw := c.Query("vehicleId"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			filters.VehicleID = uint(v)
		}
	}

	result, err := h.inquiries.List(c.Request.Context(), filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get 返回单条咨询。
func (h *InquiryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	view, err := h.inquiries.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateInquiryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 修改咨询处理状态。
func (h *InquiryHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateInquiryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	view, err := h.inquiries.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
