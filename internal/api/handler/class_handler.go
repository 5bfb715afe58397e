package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

// ClassHandler 教学班模块 HTTP 处理器
type ClassHandler struct {
	classSvc   service.ClassService
	sessionSvc service.SessionService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService, sessionSvc service.SessionService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc, sessionSvc: sessionSvc}
}

// ListClasses 分页查询教学班
// GET /api/v1/classes?semester_id=&teacher_id=&subject_id=&status=&page=&page_size=
func (h *ClassHandler) ListClasses(c *gin.Context) {
	var req dto.ClassListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	classes, total, err := h.classSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OKPage(c, classes, total, req.GetPage(), req.GetPageSize())
}

// GetClass 获取教学班详情
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	class, err := h.classSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// CreateClass 创建教学班并生成全部课次
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, class)
}

// UpdateClass 更新教学班；固定课表变更会重建课次
// PUT /api/v1/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// DeleteClass 删除教学班（无选课记录时）
// DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

// CheckConflict 固定课表冲突预检（不写入）
// POST /api/v1/classes/check-conflict
func (h *ClassHandler) CheckConflict(c *gin.Context) {
	var req dto.CheckClassConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	result, err := h.classSvc.CheckConflict(c.Request.Context(), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, result)
}

// ListSessions 查询教学班课次
// GET /api/v1/classes/:id/sessions?type=&rescheduled=&pending=
func (h *ClassHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	sessions, err := h.sessionSvc.ListByClass(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// handleClassError 统一处理教学班模块业务错误
func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	if handleCommonError(c, err) || handleCatalogError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrClassCodeExists):
		response.Conflict(c, 15002, "教学班编码已存在", nil)
	case errors.Is(err, service.ErrClassSlotTaken):
		response.Conflict(c, 15003, "该时间段已被占用", nil)
	case errors.Is(err, service.ErrClassHasEnrollments):
		response.Conflict(c, 15004, "教学班已有学生选课，不可删除", nil)
	case errors.Is(err, service.ErrClassStatusInvalid):
		response.BadRequest(c, 15005, "当前班级状态不允许该操作")
	case errors.Is(err, service.ErrCapacityBelowEnrolled):
		response.BadRequest(c, 15006, "容量不能小于已选人数")
	case errors.Is(err, service.ErrSemesterNotUpcoming):
		response.BadRequest(c, 15007, "学期已开始，不允许调整固定课表")
	default:
		response.InternalError(c)
	}
}
