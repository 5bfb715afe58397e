package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// ── 选课模块业务错误 ──

var (
	ErrStudentNotFound     = errors.New("学生不存在")
	ErrEnrollmentNotFound  = errors.New("选课记录不存在")
	ErrAlreadyEnrolled     = errors.New("已选该教学班")
	ErrClassFull           = errors.New("教学班已满员")
	ErrClassNotOpen        = errors.New("教学班未开放选课")
	ErrRegistrationClosed  = errors.New("当前不在选课时间内")
	ErrEnrollmentConflict  = errors.New("与已选课程时间冲突")
	ErrEnrollmentNotActive = errors.New("学期已结束，不可退课")
)

// EnrollmentConflictError 学生课表冲突明细，errors.Is(err, ErrEnrollmentConflict) 为真
type EnrollmentConflictError struct {
	Date              time.Time
	Day               model.Weekday
	Slot              model.TimeSlot
	ConflictClassID   string
	ConflictClassCode string
}

func (e *EnrollmentConflictError) Error() string {
	return fmt.Sprintf("与已选班级 %s 在 %s (%s) %s 时间冲突",
		e.ConflictClassCode, calendar.FormatDate(e.Date), e.Day, e.Slot)
}

func (e *EnrollmentConflictError) Unwrap() error { return ErrEnrollmentConflict }

// EnrollmentService 选课业务接口
type EnrollmentService interface {
	// Enroll 校验时间冲突后选课，并为每个已排课的线下课次生成学生课表行
	Enroll(ctx context.Context, req *dto.EnrollRequest, callerID string) (*dto.EnrollmentResponse, error)
	// Check 选课预检，返回全部冲突，不落库
	Check(ctx context.Context, req *dto.EnrollRequest) (*dto.EnrollmentCheckResponse, error)
	Drop(ctx context.Context, classID, studentID, callerID string) error
}

type enrollmentService struct {
	repo   *repository.Repository
	locker Locker
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, locker Locker, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, locker: locker, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// Enroll: 选课
// ════════════════════════════════════════════════════════════
//
// 对班级每个已排课线下课次的生效 (日期, 节次) 查询学生已有课表，
// 命中任意一行即拒绝，且不写入任何学生课表行。

func (s *enrollmentService) Enroll(ctx context.Context, req *dto.EnrollRequest, callerID string) (*dto.EnrollmentResponse, error) {
	class, semester, err := s.loadTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligible(ctx, class, semester, req.StudentID); err != nil {
		return nil, err
	}

	// 同一学生的选课串行化，避免并发选入两个互相冲突的班级
	release, err := s.locker.Lock(ctx, "student:"+req.StudentID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	enrollment := &model.Enrollment{
		StudentID:  req.StudentID,
		ClassID:    class.ClassID,
		SemesterID: class.SemesterID,
		Status:     model.EnrollmentEnrolled,
		EnrolledAt: now,
	}
	enrollment.CreatedBy = operatorPtr(callerID)
	enrollment.UpdatedBy = operatorPtr(callerID)

	var rows []model.StudentSchedule
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		sessions, err := txRepo.Session.ListByClass(ctx, class.ClassID, repository.SessionFilter{SessionType: model.SessionInPerson})
		if err != nil {
			return err
		}
		conflicts, err := findEnrollmentConflicts(ctx, txRepo, req.StudentID, class.ClassID, sessions, true)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflicts[0]
		}

		// 以调整后的人数判断满员，锁外读取的 class.EnrolledCount 可能已过期
		enrolled, ok, err := txRepo.Class.AdjustEnrolled(ctx, class.ClassID, 1)
		if err != nil {
			return err
		}
		if !ok {
			return ErrClassFull
		}
		if enrolled >= class.MaxStudents {
			if err := txRepo.Class.UpdateStatus(ctx, class.ClassID, model.ClassFull); err != nil {
				return err
			}
		}

		if err := txRepo.Enrollment.Create(ctx, enrollment); err != nil {
			return err
		}
		rows = materializeStudentSchedules(class, []string{req.StudentID}, sessionPointers(sessions))
		return txRepo.StudentSchedule.BatchCreate(ctx, rows)
	})
	if err != nil {
		var conflict *EnrollmentConflictError
		switch {
		case errors.As(err, &conflict), errors.Is(err, ErrClassFull):
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyEnrolled
		default:
			s.logger.Error("选课失败",
				zap.String("student_id", req.StudentID),
				zap.String("class_id", req.ClassID),
				zap.Error(err))
		}
		return nil, err
	}

	return &dto.EnrollmentResponse{
		ID:               enrollment.EnrollmentID,
		StudentID:        enrollment.StudentID,
		ClassID:          enrollment.ClassID,
		SemesterID:       enrollment.SemesterID,
		Status:           enrollment.Status,
		EnrolledAt:       enrollment.EnrolledAt.Format("2006-01-02T15:04:05Z"),
		ScheduledEntries: len(rows),
	}, nil
}

// ────────────────────── Check ──────────────────────

func (s *enrollmentService) Check(ctx context.Context, req *dto.EnrollRequest) (*dto.EnrollmentCheckResponse, error) {
	class, semester, err := s.loadTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.EnrollmentCheckResponse{Eligible: true, Conflicts: []dto.EnrollmentConflict{}}
	if err := s.checkEligible(ctx, class, semester, req.StudentID); err != nil {
		if !isEligibilityError(err) {
			return nil, err
		}
		resp.Eligible = false
		resp.Reason = err.Error()
	}

	sessions, err := s.repo.Session.ListByClass(ctx, class.ClassID, repository.SessionFilter{SessionType: model.SessionInPerson})
	if err != nil {
		s.logger.Error("查询班级课次失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	conflicts, err := findEnrollmentConflicts(ctx, s.repo, req.StudentID, class.ClassID, sessions, false)
	if err != nil {
		s.logger.Error("查询学生课表失败", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, err
	}
	for _, c := range conflicts {
		resp.Conflicts = append(resp.Conflicts, dto.EnrollmentConflict{
			Date:          calendar.FormatDate(c.Date),
			Day:           string(c.Day),
			TimeSlot:      string(c.Slot),
			ConflictClass: c.ConflictClassID,
			ConflictCode:  c.ConflictClassCode,
		})
	}
	if len(conflicts) > 0 && resp.Eligible {
		resp.Eligible = false
		resp.Reason = conflicts[0].Error()
	}
	return resp, nil
}

// ────────────────────── Drop ──────────────────────

func (s *enrollmentService) Drop(ctx context.Context, classID, studentID, callerID string) error {
	enrollment, err := s.repo.Enrollment.GetActive(ctx, studentID, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return err
	}
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}
	if class.Status == model.ClassCompleted ||
		(class.Semester != nil && class.Semester.Status == model.SemesterCompleted) {
		return ErrEnrollmentNotActive
	}

	now := s.now()
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		enrollment.Status = model.EnrollmentDropped
		enrollment.DroppedAt = &now
		enrollment.UpdatedBy = operatorPtr(callerID)
		if err := txRepo.Enrollment.Update(ctx, enrollment); err != nil {
			return err
		}
		if err := txRepo.StudentSchedule.DeleteByStudentAndClass(ctx, studentID, classID); err != nil {
			return err
		}
		if _, _, err := txRepo.Class.AdjustEnrolled(ctx, classID, -1); err != nil {
			return err
		}
		if class.Status == model.ClassFull {
			return txRepo.Class.UpdateStatus(ctx, classID, model.ClassOpen)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("退课失败", zap.String("class_id", classID), zap.String("student_id", studentID), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *enrollmentService) loadTarget(ctx context.Context, req *dto.EnrollRequest) (*model.Class, *model.Semester, error) {
	if _, err := s.repo.Student.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, nil, err
	}

	class, err := s.repo.Class.GetByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrClassNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("class_id", req.ClassID), zap.Error(err))
		return nil, nil, err
	}

	semester := class.Semester
	if semester == nil {
		if semester, err = s.repo.Semester.GetByID(ctx, class.SemesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrSemesterNotFound
			}
			return nil, nil, err
		}
	}
	return class, semester, nil
}

// checkEligible 校验选课窗口、班级状态与重复选课
func (s *enrollmentService) checkEligible(ctx context.Context, class *model.Class, semester *model.Semester, studentID string) error {
	if semester.Status == model.SemesterCompleted || !semester.RegistrationEnabled {
		return ErrRegistrationClosed
	}
	today := calendar.DateOnly(s.now())
	if semester.RegistrationStartDate != nil && today.Before(calendar.DateOnly(*semester.RegistrationStartDate)) {
		return ErrRegistrationClosed
	}
	if semester.RegistrationEndDate != nil && today.After(calendar.DateOnly(*semester.RegistrationEndDate)) {
		return ErrRegistrationClosed
	}

	if class.Status == model.ClassFull || class.IsFull() {
		return ErrClassFull
	}
	if class.Status != model.ClassOpen {
		return ErrClassNotOpen
	}

	if _, err := s.repo.Enrollment.GetActive(ctx, studentID, class.ClassID); err == nil {
		return ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return err
	}
	return nil
}

func isEligibilityError(err error) bool {
	return errors.Is(err, ErrRegistrationClosed) ||
		errors.Is(err, ErrClassFull) ||
		errors.Is(err, ErrClassNotOpen) ||
		errors.Is(err, ErrAlreadyEnrolled)
}

// findEnrollmentConflicts 逐个课次查询学生课表；firstOnly 时命中即返回
func findEnrollmentConflicts(ctx context.Context, repo *repository.Repository, studentID, classID string,
	sessions []model.ClassSession, firstOnly bool) ([]*EnrollmentConflictError, error) {
	var conflicts []*EnrollmentConflictError
	for i := range sessions {
		sess := &sessions[i]
		if sess.Status == model.SessionCancelled {
			continue
		}
		slot, ok := sess.EffectiveSlot()
		if !ok {
			continue
		}
		row, err := repo.StudentSchedule.FindConflict(ctx, studentID, slot.Date, slot.TimeSlot, classID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		c := &EnrollmentConflictError{
			Date:              slot.Date,
			Day:               slot.Day,
			Slot:              slot.TimeSlot,
			ConflictClassID:   row.ClassID,
			ConflictClassCode: row.ClassID,
		}
		if row.Class != nil {
			c.ConflictClassCode = row.Class.ClassCode
		}
		conflicts = append(conflicts, c)
		if firstOnly {
			break
		}
	}
	return conflicts, nil
}
