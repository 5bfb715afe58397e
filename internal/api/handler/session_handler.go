package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

// SessionHandler 课次模块 HTTP 处理器（调课、恢复、批量调课）
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// GetSession 获取课次详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// Reschedule 单次调课；待排课次视为手动排定
// PUT /api/v1/sessions/:id/reschedule
func (h *SessionHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Reschedule(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// ResetToOriginal 撤销调课，恢复原始时间
// POST /api/v1/sessions/:id/reset
func (h *SessionHandler) ResetToOriginal(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.ResetToOriginal(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// BatchReschedule 批量调课，逐个处理并允许部分成功
// POST /api/v1/sessions/batch-reschedule
func (h *SessionHandler) BatchReschedule(c *gin.Context) {
	var req dto.BatchRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.BatchReschedule(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// ListChangeLogs 课次变更历史
// GET /api/v1/sessions/:id/change-logs?page=&page_size=
func (h *SessionHandler) ListChangeLogs(c *gin.Context) {
	var req dto.SessionChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	logs, total, err := h.sessionSvc.ListChangeLogs(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

// handleSessionError 统一处理课次模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	if handleCommonError(c, err) || handleCatalogError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 16001, "课次不存在")
	case errors.Is(err, service.ErrSessionNotInPerson):
		response.BadRequest(c, 16002, "线上课次不可调课")
	case errors.Is(err, service.ErrSessionNotReschedulable):
		response.BadRequest(c, 16003, "课次已结束或已取消，不可调课")
	case errors.Is(err, service.ErrRescheduleDateInvalid):
		response.BadRequest(c, 16004, "调课日期格式错误")
	case errors.Is(err, service.ErrRescheduleDayMismatch):
		response.BadRequest(c, 16005, "调课星期与日期不一致")
	case errors.Is(err, service.ErrRescheduleOutOfSemester):
		response.BadRequest(c, 16006, "调课日期不在学期范围内")
	case errors.Is(err, service.ErrSemesterCompleted):
		response.BadRequest(c, 16007, "学期已结束，不可修改课次")
	case errors.Is(err, service.ErrBatchSizeInvalid):
		response.BadRequest(c, 16008, "批量调课数量须在 1 到 50 之间")
	default:
		response.InternalError(c)
	}
}
