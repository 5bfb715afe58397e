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

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound          = errors.New("学期不存在")
	ErrSemesterDateInvalid       = errors.New("学期结束日期不能早于开始日期")
	ErrSemesterCodeExists        = errors.New("学期编码已存在")
	ErrSemesterNotEditable       = errors.New("学期已开始，不允许修改日期")
	ErrSemesterHasClasses        = errors.New("学期下已有教学班")
	ErrSemesterTransitionInvalid = errors.New("当前学期状态不允许该操作")
	ErrRegistrationWindowInvalid = errors.New("选课开放时间无效")
)

// SemesterService 学期业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context, req *dto.SemesterListRequest) ([]dto.SemesterResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	// Activate UPCOMING → ACTIVE：降级其他活动学期并分配待排补课
	Activate(ctx context.Context, id string, callerID string) (*dto.ActivationReport, error)
	// Complete ACTIVE → COMPLETED
	Complete(ctx context.Context, id string, callerID string) (*dto.SemesterResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type semesterService struct {
	repo     *repository.Repository
	locker   Locker
	assigner PendingAssigner
	logger   *zap.Logger
	now      func() time.Time
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, locker Locker, assigner PendingAssigner, logger *zap.Logger) SemesterService {
	return &semesterService{
		repo:     repo,
		locker:   locker,
		assigner: assigner,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	startDate, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	endDate, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if endDate.Before(startDate) {
		return nil, ErrSemesterDateInvalid
	}

	if _, err := s.repo.Semester.GetByCode(ctx, req.Code); err == nil {
		return nil, ErrSemesterCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学期编码失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	semester := &model.Semester{
		Code:                req.Code,
		Name:                req.Name,
		StartDate:           startDate,
		EndDate:             endDate,
		Status:              model.SemesterUpcoming,
		RegistrationEnabled: true,
	}
	if req.RegistrationEnabled != nil {
		semester.RegistrationEnabled = *req.RegistrationEnabled
	}
	if err := applyRegistrationWindow(semester, req.RegistrationStartDate, req.RegistrationEndDate); err != nil {
		return nil, err
	}
	semester.CreatedBy = operatorPtr(callerID)
	semester.UpdatedBy = operatorPtr(callerID)

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSemesterResponse(semester), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context, req *dto.SemesterListRequest) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx, req.Status)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *toSemesterResponse(&semesters[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *semesterService) Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	if semester.Status == model.SemesterCompleted {
		return nil, ErrSemesterTransitionInvalid
	}

	if req.Name != nil {
		semester.Name = *req.Name
	}

	// 日期只允许在学期开始前修改，且已有班级时不可改（课次日期由学期区间生成）
	if req.StartDate != nil || req.EndDate != nil {
		if semester.Status != model.SemesterUpcoming {
			return nil, ErrSemesterNotEditable
		}
		count, err := s.repo.Class.CountBySemester(ctx, id)
		if err != nil {
			s.logger.Error("统计学期班级失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		if count > 0 {
			return nil, ErrSemesterHasClasses
		}
		if req.StartDate != nil {
			startDate, err := calendar.ParseDate(*req.StartDate)
			if err != nil {
				return nil, ErrSemesterDateInvalid
			}
			semester.StartDate = startDate
		}
		if req.EndDate != nil {
			endDate, err := calendar.ParseDate(*req.EndDate)
			if err != nil {
				return nil, ErrSemesterDateInvalid
			}
			semester.EndDate = endDate
		}
		if semester.EndDate.Before(semester.StartDate) {
			return nil, ErrSemesterDateInvalid
		}
	}

	if req.RegistrationEnabled != nil {
		semester.RegistrationEnabled = *req.RegistrationEnabled
	}
	if err := applyRegistrationWindow(semester, req.RegistrationStartDate, req.RegistrationEndDate); err != nil {
		return nil, err
	}

	semester.UpdatedBy = operatorPtr(callerID)

	if err := s.repo.Semester.Update(ctx, semester); err != nil {
		s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ════════════════════════════════════════════════════════════
// Activate: 学期激活
// ════════════════════════════════════════════════════════════
//
// 在一个事务内完成：
//  1. 其他 ACTIVE 学期置为 COMPLETED，其班级一并结课（保证同一时刻只有一个活动学期）
//  2. 按班级编码顺序为待排补课分配时间，分配结果写入课次、学生课表与变更日志
//  3. OPEN/FULL/CLOSED 班级转为 IN_PROGRESS
//  4. 目标学期置为 ACTIVE
//
// 未能分配的课次保持待排，只计入报告告警，不影响激活结果。

func (s *semesterService) Activate(ctx context.Context, id string, callerID string) (*dto.ActivationReport, error) {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	if semester.Status != model.SemesterUpcoming {
		return nil, ErrSemesterTransitionInvalid
	}

	release, err := s.locker.Lock(ctx, semesterLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	report := &dto.ActivationReport{
		DemotedSemesterIDs: []string{},
		Warnings:           []string{},
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	if err := s.activateInTx(ctx, txRepo, semester, now, callerID, report); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("学期已激活",
		zap.String("semester_id", id),
		zap.Strings("demoted", report.DemotedSemesterIDs),
		zap.Int("classes", report.ClassesProcessed),
		zap.Int("assigned", report.SessionsAssigned),
		zap.Int("unassigned", report.SessionsUnassigned))

	report.Semester = *toSemesterResponse(semester)
	return report, nil
}

func (s *semesterService) activateInTx(ctx context.Context, txRepo *repository.Repository, semester *model.Semester,
	now time.Time, callerID string, report *dto.ActivationReport) error {
	// 1. 降级其他活动学期
	demoted, err := txRepo.Semester.CompleteActiveExcept(ctx, semester.SemesterID, now)
	if err != nil {
		s.logger.Error("降级活动学期失败", zap.Error(err))
		return err
	}
	for _, semID := range demoted {
		if _, err := txRepo.Class.UpdateStatusBySemester(ctx, semID, activeClassStatuses(), model.ClassCompleted); err != nil {
			s.logger.Error("结课失败", zap.String("semester_id", semID), zap.Error(err))
			return err
		}
	}
	report.DemotedSemesterIDs = append(report.DemotedSemesterIDs, demoted...)

	// 2. 分配待排补课
	classes, err := txRepo.Class.ListBySemester(ctx, semester.SemesterID)
	if err != nil {
		s.logger.Error("查询学期班级失败", zap.Error(err))
		return err
	}
	rooms, err := txRepo.Room.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询教室失败", zap.Error(err))
		return err
	}
	occ, err := NewConflictChecker(txRepo).Snapshot(ctx, semester.SemesterID)
	if err != nil {
		s.logger.Error("构建占用快照失败", zap.Error(err))
		return err
	}

	for i := range classes {
		class := &classes[i]
		sessions, err := txRepo.Session.ListByClass(ctx, class.ClassID, repository.SessionFilter{})
		if err != nil {
			s.logger.Error("查询班级课次失败", zap.String("class_id", class.ClassID), zap.Error(err))
			return err
		}

		result := s.assigner.Assign(semester, class, sessions, occ, rooms)
		if err := s.persistAssignments(ctx, txRepo, class, result.Assigned, callerID); err != nil {
			return err
		}

		report.SessionsAssigned += len(result.Assigned)
		report.SessionsUnassigned += len(result.Unassigned)
		for _, sess := range result.Unassigned {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("班级 %s 第 %d 次课未找到可用时间，保持待排", class.ClassCode, sess.SessionNumber))
		}
	}
	report.ClassesProcessed = len(classes)

	// 3. 班级开课
	if _, err := txRepo.Class.UpdateStatusBySemester(ctx, semester.SemesterID,
		[]string{model.ClassOpen, model.ClassFull, model.ClassClosed}, model.ClassInProgress); err != nil {
		s.logger.Error("更新班级状态失败", zap.Error(err))
		return err
	}

	// 4. 激活
	semester.Status = model.SemesterActive
	semester.ActivatedAt = &now
	semester.UpdatedBy = operatorPtr(callerID)
	if err := txRepo.Semester.Update(ctx, semester); err != nil {
		s.logger.Error("激活学期失败", zap.String("id", semester.SemesterID), zap.Error(err))
		return err
	}
	return nil
}

func (s *semesterService) persistAssignments(ctx context.Context, txRepo *repository.Repository, class *model.Class,
	assigned []*model.ClassSession, callerID string) error {
	if len(assigned) == 0 {
		return nil
	}

	for _, sess := range assigned {
		sess.UpdatedBy = operatorPtr(callerID)
		if err := txRepo.Session.Update(ctx, sess); err != nil {
			s.logger.Error("保存补课分配失败", zap.String("session_id", sess.SessionID), zap.Error(err))
			return err
		}
		after, _ := sess.EffectiveSlot()
		if err := recordSessionChange(ctx, txRepo, sess, model.ChangeAssign, nil, &after, "", callerID); err != nil {
			s.logger.Error("创建变更日志失败", zap.Error(err))
			return err
		}
	}

	enrollments, err := txRepo.Enrollment.ListActiveByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询选课学生失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return err
	}
	rows := materializeStudentSchedules(class, enrolledStudentIDs(enrollments), assigned)
	if err := txRepo.StudentSchedule.BatchCreate(ctx, rows); err != nil {
		s.logger.Error("写入学生课表失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Complete ──────────────────────

func (s *semesterService) Complete(ctx context.Context, id string, callerID string) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return nil, err
	}
	if semester.Status != model.SemesterActive {
		return nil, ErrSemesterTransitionInvalid
	}

	now := s.now()
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.Class.UpdateStatusBySemester(ctx, id, activeClassStatuses(), model.ClassCompleted); err != nil {
			return err
		}
		semester.Status = model.SemesterCompleted
		semester.CompletedAt = &now
		semester.UpdatedBy = operatorPtr(callerID)
		return txRepo.Semester.Update(ctx, semester)
	})
	if err != nil {
		s.logger.Error("结束学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── Delete ──────────────────────

func (s *semesterService) Delete(ctx context.Context, id string, callerID string) error {
	semester, err := s.getSemester(ctx, id)
	if err != nil {
		return err
	}
	if semester.Status != model.SemesterUpcoming {
		return ErrSemesterTransitionInvalid
	}

	count, err := s.repo.Class.CountBySemester(ctx, id)
	if err != nil {
		s.logger.Error("统计学期班级失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrSemesterHasClasses
	}

	if err := s.repo.Semester.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ── 内部辅助方法 ──

func (s *semesterService) getSemester(ctx context.Context, id string) (*model.Semester, error) {
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

func activeClassStatuses() []string {
	return []string{model.ClassOpen, model.ClassFull, model.ClassClosed, model.ClassInProgress}
}

// applyRegistrationWindow 解析选课开放区间；空串表示清除
func applyRegistrationWindow(semester *model.Semester, start, end *string) error {
	parse := func(v *string, target **time.Time) error {
		if v == nil {
			return nil
		}
		if *v == "" {
			*target = nil
			return nil
		}
		d, err := calendar.ParseDate(*v)
		if err != nil {
			return ErrRegistrationWindowInvalid
		}
		*target = &d
		return nil
	}
	if err := parse(start, &semester.RegistrationStartDate); err != nil {
		return err
	}
	if err := parse(end, &semester.RegistrationEndDate); err != nil {
		return err
	}
	if semester.RegistrationStartDate != nil && semester.RegistrationEndDate != nil &&
		semester.RegistrationEndDate.Before(*semester.RegistrationStartDate) {
		return ErrRegistrationWindowInvalid
	}
	return nil
}

func toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	resp := &dto.SemesterResponse{
		ID:                  semester.SemesterID,
		Code:                semester.Code,
		Name:                semester.Name,
		StartDate:           calendar.FormatDate(semester.StartDate),
		EndDate:             calendar.FormatDate(semester.EndDate),
		Status:              semester.Status,
		RegistrationEnabled: semester.RegistrationEnabled,
		CreatedAt:           semester.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:           semester.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if semester.RegistrationStartDate != nil {
		resp.RegistrationStartDate = calendar.FormatDate(*semester.RegistrationStartDate)
	}
	if semester.RegistrationEndDate != nil {
		resp.RegistrationEndDate = calendar.FormatDate(*semester.RegistrationEndDate)
	}
	if semester.ActivatedAt != nil {
		resp.ActivatedAt = semester.ActivatedAt.Format("2006-01-02T15:04:05Z")
	}
	if semester.CompletedAt != nil {
		resp.CompletedAt = semester.CompletedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}
