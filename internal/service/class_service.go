package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// ── 教学班模块业务错误 ──

var (
	ErrClassNotFound         = errors.New("教学班不存在")
	ErrClassCodeExists       = errors.New("教学班编码已存在")
	ErrClassSlotTaken        = errors.New("该时间段已被占用")
	ErrClassHasEnrollments   = errors.New("教学班已有学生选课，不可删除")
	ErrClassStatusInvalid    = errors.New("当前班级状态不允许该操作")
	ErrCapacityBelowEnrolled = errors.New("容量不能小于已选人数")
	ErrSemesterNotUpcoming   = errors.New("学期已开始，不允许调整固定课表")
	ErrSubjectNotFound       = errors.New("课程不存在")
	ErrTeacherNotFound       = errors.New("教师不存在或已停用")
	ErrRoomNotFound          = errors.New("教室不存在或已停用")
	ErrInvalidWeekday        = errors.New("星期取值无效")
	ErrInvalidTimeSlot       = errors.New("节次取值无效")
)

// ClassService 教学班业务接口
type ClassService interface {
	Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ClassResponse, error)
	List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateClassRequest, callerID string) (*dto.ClassResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// CheckConflict 固定课表冲突预检（不落库）
	CheckConflict(ctx context.Context, req *dto.CheckClassConflictRequest) (*dto.CheckClassConflictResponse, error)
}

type classService struct {
	repo   *repository.Repository
	locker Locker
	logger *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, locker Locker, logger *zap.Logger) ClassService {
	return &classService{repo: repo, locker: locker, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create: 创建教学班并生成课次
// ════════════════════════════════════════════════════════════

func (s *classService) Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error) {
	day, slot, err := parsePattern(req.FixedDay, req.FixedSlot)
	if err != nil {
		return nil, err
	}

	semester, err := s.getSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}
	if semester.Status != model.SemesterUpcoming {
		return nil, ErrSemesterNotUpcoming
	}

	subject, err := s.repo.Subject.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询课程失败", zap.String("subject_id", req.SubjectID), zap.Error(err))
		return nil, err
	}
	breakdown, err := ResolveBreakdown(subject)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}
	if err := ensureRoom(ctx, s.repo, req.FixedRoom, s.logger); err != nil {
		return nil, err
	}

	if _, err := s.repo.Class.GetByCode(ctx, req.ClassCode); err == nil {
		return nil, ErrClassCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询班级编码失败", zap.String("code", req.ClassCode), zap.Error(err))
		return nil, err
	}

	release, err := s.locker.Lock(ctx, semesterLockKey(semester.SemesterID))
	if err != nil {
		return nil, err
	}
	defer release()

	class := &model.Class{
		ClassCode:   req.ClassCode,
		SubjectID:   req.SubjectID,
		TeacherID:   req.TeacherID,
		SemesterID:  req.SemesterID,
		MaxStudents: req.MaxStudents,
		Status:      model.ClassOpen,
		FixedDay:    day,
		FixedSlot:   slot,
		FixedRoom:   req.FixedRoom,
		StartDate:   semester.StartDate,
		EndDate:     semester.EndDate,
	}
	class.CreatedBy = operatorPtr(callerID)
	class.UpdatedBy = operatorPtr(callerID)

	var sessions []model.ClassSession
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		occ, err := NewConflictChecker(txRepo).Snapshot(ctx, semester.SemesterID)
		if err != nil {
			return err
		}
		q := SlotQuery{Level: PatternLevel, Day: day, Slot: slot}
		if c := occ.TeacherConflict(class.TeacherID, q); c != nil {
			return c
		}
		if c := occ.RoomConflict(class.FixedRoom, q); c != nil {
			return c
		}

		if err := txRepo.Class.Create(ctx, class); err != nil {
			return err
		}
		sessions = GenerateSessions(class, breakdown, semester.StartDate, semester.EndDate)
		return txRepo.Session.BatchCreate(ctx, sessions)
	})
	if err != nil {
		return nil, s.mapWriteError("创建教学班失败", err)
	}

	s.logger.Info("教学班已创建",
		zap.String("class_id", class.ClassID),
		zap.String("class_code", class.ClassCode),
		zap.Int("sessions", len(sessions)))

	class.Subject = subject
	resp := toClassResponse(class)
	resp.Sessions = toSessionSummary(sessions)
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *classService) GetByID(ctx context.Context, id string) (*dto.ClassResponse, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session.ListByClass(ctx, id, repository.SessionFilter{})
	if err != nil {
		s.logger.Error("查询班级课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toClassResponse(class)
	resp.Sessions = toSessionSummary(sessions)
	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *classService) List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, int64, error) {
	filter := repository.ClassFilter{
		SemesterID: req.SemesterID,
		TeacherID:  req.TeacherID,
		SubjectID:  req.SubjectID,
		Status:     req.Status,
	}
	classes, total, err := s.repo.Class.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教学班失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, *toClassResponse(&classes[i]))
	}
	return result, total, nil
}

// ════════════════════════════════════════════════════════════
// Update: 修改教学班
// ════════════════════════════════════════════════════════════
//
// 固定课表或教师变更仅在学期 UPCOMING 时允许；固定课表变更会整体重新生成课次，
// 之前的调课记录随之清除，已选课学生的个人课表同步重建。

func (s *classService) Update(ctx context.Context, id string, req *dto.UpdateClassRequest, callerID string) (*dto.ClassResponse, error) {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return nil, err
	}
	semester := class.Semester
	if semester == nil {
		if semester, err = s.getSemester(ctx, class.SemesterID); err != nil {
			return nil, err
		}
	}

	newDay, newSlot, newRoom, newTeacher := class.FixedDay, class.FixedSlot, class.FixedRoom, class.TeacherID
	if req.FixedDay != nil {
		newDay = model.Weekday(*req.FixedDay)
	}
	if req.FixedSlot != nil {
		newSlot = model.TimeSlot(*req.FixedSlot)
	}
	if req.FixedRoom != nil {
		newRoom = *req.FixedRoom
	}
	if req.TeacherID != nil {
		newTeacher = *req.TeacherID
	}
	if _, _, err := parsePattern(string(newDay), string(newSlot)); err != nil {
		return nil, err
	}

	patternChanged := newDay != class.FixedDay || newSlot != class.FixedSlot || newRoom != class.FixedRoom
	teacherChanged := newTeacher != class.TeacherID
	if (patternChanged || teacherChanged) && semester.Status != model.SemesterUpcoming {
		return nil, ErrSemesterNotUpcoming
	}
	if teacherChanged {
		if err := s.ensureTeacher(ctx, newTeacher); err != nil {
			return nil, err
		}
	}
	if newRoom != class.FixedRoom {
		if err := ensureRoom(ctx, s.repo, newRoom, s.logger); err != nil {
			return nil, err
		}
	}

	if err := applyCapacityAndStatus(class, req); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, semesterLockKey(class.SemesterID))
	if err != nil {
		return nil, err
	}
	defer release()

	class.FixedDay, class.FixedSlot, class.FixedRoom, class.TeacherID = newDay, newSlot, newRoom, newTeacher
	if teacherChanged {
		class.Teacher = nil
	}
	class.UpdatedBy = operatorPtr(callerID)

	var (
		sessions []model.ClassSession
		warnings []string
	)
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if patternChanged || teacherChanged {
			occ, err := NewConflictChecker(txRepo).Snapshot(ctx, class.SemesterID)
			if err != nil {
				return err
			}
			q := SlotQuery{Level: PatternLevel, Day: newDay, Slot: newSlot, ExcludeClassID: class.ClassID}
			if c := occ.TeacherConflict(newTeacher, q); c != nil {
				return c
			}
			if c := occ.RoomConflict(newRoom, q); c != nil {
				return c
			}
		}

		if err := txRepo.Class.Update(ctx, class); err != nil {
			return err
		}
		if !patternChanged {
			return nil
		}

		sessions, warnings, err = s.regenerateSessions(ctx, txRepo, class, semester)
		return err
	})
	if err != nil {
		return nil, s.mapWriteError("更新教学班失败", err)
	}

	resp := toClassResponse(class)
	if patternChanged {
		resp.Sessions = toSessionSummary(sessions)
	}
	resp.Warnings = warnings
	return resp, nil
}

// regenerateSessions 删除旧课次后按新固定课表重新生成，并为已选课学生重建个人课表
func (s *classService) regenerateSessions(ctx context.Context, txRepo *repository.Repository,
	class *model.Class, semester *model.Semester) ([]model.ClassSession, []string, error) {
	subject := class.Subject
	if subject == nil {
		var err error
		if subject, err = txRepo.Subject.GetByID(ctx, class.SubjectID); err != nil {
			return nil, nil, err
		}
	}
	breakdown, err := ResolveBreakdown(subject)
	if err != nil {
		return nil, nil, err
	}

	if err := txRepo.StudentSchedule.DeleteByClass(ctx, class.ClassID); err != nil {
		return nil, nil, err
	}
	if err := txRepo.Session.DeleteByClass(ctx, class.ClassID); err != nil {
		return nil, nil, err
	}
	sessions := GenerateSessions(class, breakdown, semester.StartDate, semester.EndDate)
	if err := txRepo.Session.BatchCreate(ctx, sessions); err != nil {
		return nil, nil, err
	}

	enrollments, err := txRepo.Enrollment.ListActiveByClass(ctx, class.ClassID)
	if err != nil {
		return nil, nil, err
	}
	if len(enrollments) == 0 {
		return sessions, nil, nil
	}

	warnings := []string{
		fmt.Sprintf("班级已有 %d 名学生选课，课次已按新课表重新生成，原调课记录已清除", len(enrollments)),
	}
	rows := materializeStudentSchedules(class, enrolledStudentIDs(enrollments), sessionPointers(sessions))
	for _, row := range rows {
		clash, err := txRepo.StudentSchedule.FindConflict(ctx, row.StudentID, row.SessionDate, row.TimeSlot, class.ClassID)
		if err == nil {
			code := clash.ClassID
			if clash.Class != nil {
				code = clash.Class.ClassCode
			}
			warnings = append(warnings, fmt.Sprintf("学生 %s 在 %s %s 与班级 %s 冲突",
				row.StudentID, calendar.FormatDate(row.SessionDate), row.TimeSlot, code))
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}
	if err := txRepo.StudentSchedule.BatchCreate(ctx, rows); err != nil {
		return nil, nil, err
	}
	return sessions, warnings, nil
}

// ────────────────────── Delete ──────────────────────

func (s *classService) Delete(ctx context.Context, id string, callerID string) error {
	class, err := s.getClass(ctx, id)
	if err != nil {
		return err
	}
	if class.Semester != nil && class.Semester.Status != model.SemesterUpcoming {
		return ErrSemesterNotUpcoming
	}

	count, err := s.repo.Enrollment.CountActiveByClass(ctx, id)
	if err != nil {
		s.logger.Error("统计选课人数失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrClassHasEnrollments
	}

	release, err := s.locker.Lock(ctx, semesterLockKey(class.SemesterID))
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Session.DeleteByClass(ctx, id); err != nil {
			return err
		}
		return txRepo.Class.Delete(ctx, id, callerID)
	})
	if err != nil {
		s.logger.Error("删除教学班失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── CheckConflict ──────────────────────

func (s *classService) CheckConflict(ctx context.Context, req *dto.CheckClassConflictRequest) (*dto.CheckClassConflictResponse, error) {
	day, slot, err := parsePattern(req.FixedDay, req.FixedSlot)
	if err != nil {
		return nil, err
	}
	if _, err := s.getSemester(ctx, req.SemesterID); err != nil {
		return nil, err
	}

	occ, err := NewConflictChecker(s.repo).Snapshot(ctx, req.SemesterID)
	if err != nil {
		s.logger.Error("构建占用快照失败", zap.Error(err))
		return nil, err
	}

	q := SlotQuery{Level: PatternLevel, Day: day, Slot: slot, ExcludeClassID: req.ExcludeClassID}
	resp := &dto.CheckClassConflictResponse{Details: []string{}}
	if c := occ.TeacherConflict(req.TeacherID, q); c != nil {
		resp.TeacherConflict = true
		resp.Details = append(resp.Details, c.Error())
	}
	if c := occ.RoomConflict(req.FixedRoom, q); c != nil {
		resp.RoomConflict = true
		resp.Details = append(resp.Details, c.Error())
	}
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *classService) getClass(ctx context.Context, id string) (*model.Class, error) {
	class, err := s.repo.Class.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return class, nil
}

func (s *classService) getSemester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return semester, nil
}

func (s *classService) ensureTeacher(ctx context.Context, id string) error {
	teacher, err := s.repo.Teacher.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("teacher_id", id), zap.Error(err))
		return err
	}
	if !teacher.IsActive {
		return ErrTeacherNotFound
	}
	return nil
}

// ensureRoom 校验教室存在且启用
func ensureRoom(ctx context.Context, repo *repository.Repository, code string, logger *zap.Logger) error {
	room, err := repo.Room.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		logger.Error("查询教室失败", zap.String("room", code), zap.Error(err))
		return err
	}
	if !room.IsActive {
		return ErrRoomNotFound
	}
	return nil
}

// mapWriteError 数据库唯一索引兜底的并发冲突转为业务错误，其余原样返回
func (s *classService) mapWriteError(msg string, err error) error {
	var conflict *ScheduleConflictError
	switch {
	case errors.As(err, &conflict):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrClassSlotTaken
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

func parsePattern(dayValue, slotValue string) (model.Weekday, model.TimeSlot, error) {
	day := model.Weekday(dayValue)
	if !day.Valid() {
		return "", "", ErrInvalidWeekday
	}
	slot := model.TimeSlot(slotValue)
	if !slot.Valid() {
		return "", "", ErrInvalidTimeSlot
	}
	return day, slot, nil
}

// applyCapacityAndStatus 处理容量与开放状态，满员状态随容量自动切换
func applyCapacityAndStatus(class *model.Class, req *dto.UpdateClassRequest) error {
	if req.MaxStudents != nil {
		if *req.MaxStudents < class.EnrolledCount {
			return ErrCapacityBelowEnrolled
		}
		class.MaxStudents = *req.MaxStudents
	}

	status := class.Status
	if req.Status != nil {
		switch class.Status {
		case model.ClassOpen, model.ClassFull, model.ClassClosed:
		default:
			return ErrClassStatusInvalid
		}
		status = *req.Status
	}

	switch status {
	case model.ClassOpen, model.ClassFull:
		if class.IsFull() {
			status = model.ClassFull
		} else {
			status = model.ClassOpen
		}
	}
	class.Status = status
	return nil
}

func toSessionSummary(sessions []model.ClassSession) *dto.SessionSummary {
	fixed, extra, pending, eLearning := summarizeSessions(sessions)
	return &dto.SessionSummary{
		Total:     len(sessions),
		Fixed:     fixed,
		Extra:     extra,
		Pending:   pending,
		ELearning: eLearning,
	}
}

func toClassResponse(class *model.Class) *dto.ClassResponse {
	resp := &dto.ClassResponse{
		ID:            class.ClassID,
		ClassCode:     class.ClassCode,
		SubjectID:     class.SubjectID,
		TeacherID:     class.TeacherID,
		SemesterID:    class.SemesterID,
		MaxStudents:   class.MaxStudents,
		EnrolledCount: class.EnrolledCount,
		Status:        class.Status,
		FixedDay:      string(class.FixedDay),
		FixedSlot:     string(class.FixedSlot),
		FixedRoom:     class.FixedRoom,
		StartDate:     calendar.FormatDate(class.StartDate),
		EndDate:       calendar.FormatDate(class.EndDate),
		CreatedAt:     class.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     class.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if class.Subject != nil {
		resp.SubjectName = class.Subject.Name
	}
	if class.Teacher != nil {
		resp.TeacherName = class.Teacher.FullName
	}
	return resp
}
