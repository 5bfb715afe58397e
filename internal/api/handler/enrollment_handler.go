package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

// EnrollmentHandler 选课模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// Enroll 选课；与已选课程任一课次冲突时拒绝
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	if !MustBeSelfOrStaff(c, req.StudentID) {
		return
	}
	callerID, _ := MustGetUserID(c)

	enrollment, err := h.enrollmentSvc.Enroll(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// Check 选课预检，返回全部冲突
// POST /api/v1/enrollments/check
func (h *EnrollmentHandler) Check(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	if !MustBeSelfOrStaff(c, req.StudentID) {
		return
	}

	result, err := h.enrollmentSvc.Check(c.Request.Context(), &req)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, result)
}

// Drop 退课
// POST /api/v1/enrollments/drop
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	if !MustBeSelfOrStaff(c, req.StudentID) {
		return
	}
	callerID, _ := MustGetUserID(c)

	if err := h.enrollmentSvc.Drop(c.Request.Context(), req.ClassID, req.StudentID, callerID); err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleEnrollmentError 统一处理选课模块业务错误
func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	var conflict *service.EnrollmentConflictError
	if errors.As(err, &conflict) {
		response.Conflict(c, 17007, conflict.Error(), enrollmentConflictDetail(conflict))
		return
	}
	if handleCommonError(c, err) || handleCatalogError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 17002, "选课记录不存在")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Conflict(c, 17003, "已选该教学班", nil)
	case errors.Is(err, service.ErrClassFull):
		response.Conflict(c, 17004, "教学班已满员", nil)
	case errors.Is(err, service.ErrClassNotOpen):
		response.BadRequest(c, 17005, "教学班未开放选课")
	case errors.Is(err, service.ErrRegistrationClosed):
		response.BadRequest(c, 17006, "当前不在选课时间内")
	case errors.Is(err, service.ErrEnrollmentNotActive):
		response.BadRequest(c, 17008, "学期已结束，不可退课")
	default:
		response.InternalError(c)
	}
}
