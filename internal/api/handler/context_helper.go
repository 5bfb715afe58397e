package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/service"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
	pkgerrors "github.com/Project-UTH/EduCourseManagement-sub000/pkg/errors"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/jwt"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustBeSelfOrStaff 学生只能操作本人数据；管理员与教师不受限
func MustBeSelfOrStaff(c *gin.Context, ownerID string) bool {
	role, ok := MustGetRole(c)
	if !ok {
		return false
	}
	if role != jwt.RoleStudent {
		return true
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return false
	}
	if userID != ownerID {
		response.Forbidden(c, 10003, "无权访问他人数据")
		return false
	}
	return true
}

// ── 跨模块通用错误 ──

// handleCommonError 处理锁占用、并发修改与排课冲突；已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	var conflict *service.ScheduleConflictError
	switch {
	case errors.As(err, &conflict):
		response.Conflict(c, 10010, conflict.Error(), scheduleConflictDetail(conflict))
	case errors.Is(err, service.ErrResourceBusy):
		response.Conflict(c, 10008, "排课数据正被其他操作修改，请稍后重试", nil)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10009, "数据已被其他操作修改，请刷新后重试", nil)
	default:
		return false
	}
	return true
}

func scheduleConflictDetail(e *service.ScheduleConflictError) dto.ConflictDetail {
	d := dto.ConflictDetail{
		Dimension:         e.Dimension,
		Resource:          e.Resource,
		Day:               string(e.Day),
		TimeSlot:          string(e.Slot),
		ConflictClassID:   e.ConflictClassID,
		ConflictSessionID: e.ConflictSessionID,
	}
	if e.Date != nil {
		d.Date = calendar.FormatDate(*e.Date)
	}
	return d
}

func enrollmentConflictDetail(e *service.EnrollmentConflictError) dto.ConflictDetail {
	return dto.ConflictDetail{
		Dimension:         "STUDENT",
		Date:              calendar.FormatDate(e.Date),
		Day:               string(e.Day),
		TimeSlot:          string(e.Slot),
		ConflictClassID:   e.ConflictClassID,
		ConflictClassCode: e.ConflictClassCode,
	}
}

// handleCatalogError 课程、教师、教室、学生、学期的不存在错误
func handleCatalogError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 15001, "教学班不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 15008, "课程不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 15009, "教师不存在或已停用")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 15010, "教室不存在或已停用")
	case errors.Is(err, service.ErrInvalidWeekday):
		response.BadRequest(c, 15011, "星期取值无效")
	case errors.Is(err, service.ErrInvalidTimeSlot):
		response.BadRequest(c, 15012, "节次取值无效")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 17001, "学生不存在")
	default:
		return false
	}
	return true
}
