package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

// SemesterHandler 学期模块 HTTP 处理器
type SemesterHandler struct {
	semesterSvc service.SemesterService
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(semesterSvc service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterSvc: semesterSvc}
}

// ListSemesters 获取学期列表
// GET /api/v1/semesters?status=ACTIVE
func (h *SemesterHandler) ListSemesters(c *gin.Context) {
	var req dto.SemesterListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	semesters, err := h.semesterSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": semesters})
}

// GetSemester 获取学期详情
// GET /api/v1/semesters/:id
func (h *SemesterHandler) GetSemester(c *gin.Context) {
	semester, err := h.semesterSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// GetCurrentSemester 获取当前活动学期
// GET /api/v1/semesters/current
func (h *SemesterHandler) GetCurrentSemester(c *gin.Context) {
	semester, err := h.semesterSvc.GetCurrent(c.Request.Context())
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// CreateSemester 创建学期（初始状态 UPCOMING）
// POST /api/v1/semesters
func (h *SemesterHandler) CreateSemester(c *gin.Context) {
	var req dto.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	semester, err := h.semesterSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.Created(c, semester)
}

// UpdateSemester 更新学期
// PUT /api/v1/semesters/:id
func (h *SemesterHandler) UpdateSemester(c *gin.Context) {
	var req dto.UpdateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	semester, err := h.semesterSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// ActivateSemester 激活学期：降级其他活动学期并为待排课次分配时间
// POST /api/v1/semesters/:id/activate
func (h *SemesterHandler) ActivateSemester(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	report, err := h.semesterSvc.Activate(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, report)
}

// CompleteSemester 结束学期
// POST /api/v1/semesters/:id/complete
func (h *SemesterHandler) CompleteSemester(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	semester, err := h.semesterSvc.Complete(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// DeleteSemester 删除学期（仅 UPCOMING 且无教学班）
// DELETE /api/v1/semesters/:id
func (h *SemesterHandler) DeleteSemester(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.semesterSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSemesterError 统一处理学期模块业务错误
func (h *SemesterHandler) handleSemesterError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrSemesterDateInvalid):
		response.BadRequest(c, 14002, "学期日期无效")
	case errors.Is(err, service.ErrSemesterCodeExists):
		response.Conflict(c, 14003, "学期编码已存在", nil)
	case errors.Is(err, service.ErrSemesterNotEditable):
		response.BadRequest(c, 14004, "学期已开始，不允许修改日期")
	case errors.Is(err, service.ErrSemesterHasClasses):
		response.Conflict(c, 14005, "学期下已有教学班", nil)
	case errors.Is(err, service.ErrSemesterTransitionInvalid):
		response.BadRequest(c, 14006, "当前学期状态不允许该操作")
	case errors.Is(err, service.ErrRegistrationWindowInvalid):
		response.BadRequest(c, 14007, "选课开放时间无效")
	default:
		response.InternalError(c)
	}
}
