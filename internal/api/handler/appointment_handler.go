package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"advisor-hub/backend/internal/dto"
	"advisor-hub/backend/internal/service"
	"advisor-hub/backend/pkg/response"
)

// AppointmentHandler 预约模块 HTTP 处理器
type AppointmentHandler struct {
	appointmentSvc service.AppointmentService
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(appointmentSvc service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc}
}

// CreateAppointment 创建预约
// POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	appointment, err := h.appointmentSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.writeAppointmentError(c, err)
		return
	}

	response.Created(c, appointment)
}

// GetAppointment 预约详情
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	appointment, err := h.appointmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeAppointmentError(c, err)
		return
	}

	response.OK(c, appointment)
}

// ListMyAppointments 我相关的预约（创建或被邀请）
// GET /api/v1/appointments
func (h *AppointmentHandler) ListMyAppointments(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	appointments, total, err := h.appointmentSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, appointments, total, req.GetPage(), req.GetPageSize())
}

// UpdateAppointment 更新预约（仅创建者）
// PATCH /api/v1/appointments/:id
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	appointment, err := h.appointmentSvc.Update(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.writeAppointmentError(c, err)
		return
	}

	response.OK(c, appointment)
}

// DeleteAppointment 删除预约（仅创建者）
// DELETE /api/v1/appointments/:id
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.appointmentSvc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.writeAppointmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// writeAppointmentError 统一映射预约模块业务错误
func (h *AppointmentHandler) writeAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 40001, "预约不存在")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 40002, "预约开始时间必须早于结束时间")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 31001, "小组不存在")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		response.InternalError(c)
	}
}
