package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/jwt"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

// TimetableHandler 课表模块 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// GetMyTimetable 当前用户课表：学生读选课课表，教师读授课课表
// GET /api/v1/timetables/me?semester_id=&week=
func (h *TimetableHandler) GetMyTimetable(c *gin.Context) {
	var req dto.TimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var (
		resp *dto.TimetableResponse
		err  error
	)
	switch role {
	case jwt.RoleStudent:
		resp, err = h.svc.StudentTimetable(c.Request.Context(), userID, &req)
	case jwt.RoleTeacher:
		resp, err = h.svc.TeacherTimetable(c.Request.Context(), userID, &req)
	default:
		response.BadRequest(c, 18003, "当前角色没有个人课表")
		return
	}
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetStudentTimetable 学生课表
// GET /api/v1/timetables/students/:id?semester_id=&week=
func (h *TimetableHandler) GetStudentTimetable(c *gin.Context) {
	var req dto.TimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	studentID := c.Param("id")
	if !MustBeSelfOrStaff(c, studentID) {
		return
	}

	resp, err := h.svc.StudentTimetable(c.Request.Context(), studentID, &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetTeacherTimetable 教师课表（按调课后的实际时间）
// GET /api/v1/timetables/teachers/:id?semester_id=&week=
func (h *TimetableHandler) GetTeacherTimetable(c *gin.Context) {
	var req dto.TimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	resp, err := h.svc.TeacherTimetable(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, resp)
}

// GetRoomTimetable 教室占用情况
// GET /api/v1/timetables/rooms/:code?semester_id=&week=
func (h *TimetableHandler) GetRoomTimetable(c *gin.Context) {
	var req dto.TimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	resp, err := h.svc.RoomTimetable(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, resp)
}

// ExportStudentICS 导出学生课表为 iCalendar 文件
// GET /api/v1/timetables/students/:id/ics?semester_id=
func (h *TimetableHandler) ExportStudentICS(c *gin.Context) {
	studentID := c.Param("id")
	if !MustBeSelfOrStaff(c, studentID) {
		return
	}

	data, filename, err := h.svc.ExportStudentICS(c.Request.Context(), studentID, c.Query("semester_id"))
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

func handleTimetableError(c *gin.Context, err error) {
	if handleCatalogError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrTimetableWeekInvalid):
		response.BadRequest(c, 18001, "周参数格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrTimetableNoActiveSemester):
		response.NotFound(c, 18002, "当前无活动学期，请指定学期")
	default:
		response.InternalError(c)
	}
}
