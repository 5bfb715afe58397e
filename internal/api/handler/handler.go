package handler

import "github.com/Project-UTH/EduCourseManagement-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester   *SemesterHandler
	Class      *ClassHandler
	Session    *SessionHandler
	Enrollment *EnrollmentHandler
	Timetable  *TimetableHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Semester:   NewSemesterHandler(svc.Semester),
		Class:      NewClassHandler(svc.Class, svc.Session),
		Session:    NewSessionHandler(svc.Session),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
		Timetable:  NewTimetableHandler(svc.Timetable),
		Export:     NewExportHandler(svc.Export),
	}
}
