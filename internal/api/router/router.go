package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/config"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/api/handler"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/api/middleware"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/jwt"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "redis": rdb != nil}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, status)
	})

	admin := middleware.RoleAuth(jwt.RoleAdmin)
	writeLimit := middleware.RateLimit(rdb, cfg.Scheduling.RateLimit, cfg.Scheduling.RateLimitWindow)

	// ── API v1（均需认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 学期模块
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.POST("", admin, h.Semester.CreateSemester)
			semesters.PUT("/:id", admin, h.Semester.UpdateSemester)
			semesters.POST("/:id/activate", admin, writeLimit, h.Semester.ActivateSemester)
			semesters.POST("/:id/complete", admin, h.Semester.CompleteSemester)
			semesters.DELETE("/:id", admin, h.Semester.DeleteSemester)
		}

		// 教学班模块
		classes := v1.Group("/classes")
		{
			classes.GET("", h.Class.ListClasses)
			classes.GET("/:id", h.Class.GetClass)
			classes.GET("/:id/sessions", h.Class.ListSessions)
			classes.POST("", admin, writeLimit, h.Class.CreateClass)
			classes.POST("/check-conflict", admin, h.Class.CheckConflict)
			classes.PUT("/:id", admin, writeLimit, h.Class.UpdateClass)
			classes.DELETE("/:id", admin, h.Class.DeleteClass)
		}

		// 课次模块（调课）
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id", h.Session.GetSession)
			sessions.GET("/:id/change-logs", admin, h.Session.ListChangeLogs)
			sessions.PUT("/:id/reschedule", admin, writeLimit, h.Session.Reschedule)
			sessions.POST("/:id/reset", admin, writeLimit, h.Session.ResetToOriginal)
			sessions.POST("/batch-reschedule", admin, writeLimit, h.Session.BatchReschedule)
		}

		// 选课模块（学生本人或管理员，Handler 层校验本人）
		enrollments := v1.Group("/enrollments")
		enrollments.Use(middleware.RoleAuth(jwt.RoleStudent, jwt.RoleAdmin))
		{
			enrollments.POST("", writeLimit, h.Enrollment.Enroll)
			enrollments.POST("/check", h.Enrollment.Check)
			enrollments.POST("/drop", writeLimit, h.Enrollment.Drop)
		}

		// 课表模块
		timetables := v1.Group("/timetables")
		{
			timetables.GET("/me", h.Timetable.GetMyTimetable)
			timetables.GET("/students/:id", h.Timetable.GetStudentTimetable)
			timetables.GET("/students/:id/ics", h.Timetable.ExportStudentICS)
			timetables.GET("/teachers/:id", middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleTeacher), h.Timetable.GetTeacherTimetable)
			timetables.GET("/rooms/:code", middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleTeacher), h.Timetable.GetRoomTimetable)
		}

		// 导出模块
		export := v1.Group("/export")
		export.Use(middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleTeacher))
		{
			export.GET("/classes/:id/sessions", h.Export.ExportClassSessions)
			export.GET("/semesters/:id/grid", h.Export.ExportSemesterGrid)
		}
	}

	return r
}
