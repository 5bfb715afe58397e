package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// MaxBatchReschedule 单次批量调课上限
const MaxBatchReschedule = 50

// ── 课次模块业务错误 ──

var (
	ErrSessionNotFound         = errors.New("课次不存在")
	ErrSessionNotInPerson      = errors.New("线上课次不可调课")
	ErrSessionNotReschedulable = errors.New("课次已结束或已取消，不可调课")
	ErrRescheduleDateInvalid   = errors.New("调课日期格式错误")
	ErrRescheduleDayMismatch   = errors.New("调课星期与日期不一致")
	ErrRescheduleOutOfSemester = errors.New("调课日期不在学期范围内")
	ErrSemesterCompleted       = errors.New("学期已结束，不可修改课次")
	ErrBatchSizeInvalid        = errors.New("批量调课数量须在 1 到 50 之间")
)

// SessionService 课次查询与调课接口
type SessionService interface {
	GetByID(ctx context.Context, id string) (*dto.SessionResponse, error)
	ListByClass(ctx context.Context, classID string, req *dto.SessionListRequest) ([]dto.SessionResponse, error)
	// Reschedule 单次调课；待排课次视为手工指定时间
	Reschedule(ctx context.Context, id string, req *dto.RescheduleRequest, callerID string) (*dto.SessionResponse, error)
	// BatchReschedule 多个课次调到同一时间地点，逐个独立处理，允许部分成功
	BatchReschedule(ctx context.Context, req *dto.BatchRescheduleRequest, callerID string) (*dto.BatchRescheduleResponse, error)
	// ResetToOriginal 恢复原始排课；未调课时直接返回成功
	ResetToOriginal(ctx context.Context, id string, callerID string) (*dto.SessionResponse, error)
	ListChangeLogs(ctx context.Context, id string, req *dto.SessionChangeLogListRequest) ([]dto.SessionChangeLogResponse, int64, error)
}

type sessionService struct {
	repo   *repository.Repository
	locker Locker
	logger *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, locker Locker, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, locker: locker, logger: logger}
}

// ────────────────────── GetByID ──────────────────────

func (s *sessionService) GetByID(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.getSession(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	resp := toSessionResponse(sess)
	return &resp, nil
}

// ────────────────────── ListByClass ──────────────────────

func (s *sessionService) ListByClass(ctx context.Context, classID string, req *dto.SessionListRequest) ([]dto.SessionResponse, error) {
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	filter := repository.SessionFilter{
		SessionType:     req.Type,
		RescheduledOnly: req.Rescheduled,
		PendingOnly:     req.Pending,
	}
	sessions, err := s.repo.Session.ListByClass(ctx, classID, filter)
	if err != nil {
		s.logger.Error("查询班级课次失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Reschedule: 单次调课
// ════════════════════════════════════════════════════════════
//
// 校验顺序：课次存在 → 线下课 → 状态为 SCHEDULED → 日期在学期内 → 教室存在
// → 教师/教室按日期无冲突（排除自身）。通过后在同一事务内写入课次、同步学生课表并记录变更日志。

func (s *sessionService) Reschedule(ctx context.Context, id string, req *dto.RescheduleRequest, callerID string) (*dto.SessionResponse, error) {
	target, err := parseRescheduleTarget(req)
	if err != nil {
		return nil, err
	}
	return s.rescheduleOne(ctx, id, target, req.Reason, callerID)
}

// ────────────────────── BatchReschedule ──────────────────────

func (s *sessionService) BatchReschedule(ctx context.Context, req *dto.BatchRescheduleRequest, callerID string) (*dto.BatchRescheduleResponse, error) {
	if len(req.SessionIDs) == 0 || len(req.SessionIDs) > MaxBatchReschedule {
		return nil, ErrBatchSizeInvalid
	}
	target, err := parseRescheduleTarget(&req.RescheduleRequest)
	if err != nil {
		return nil, err
	}

	resp := &dto.BatchRescheduleResponse{
		Succeeded: []dto.SessionResponse{},
		Failed:    []dto.BatchRescheduleFailure{},
	}
	seen := make(map[string]bool, len(req.SessionIDs))
	for _, id := range req.SessionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		resp.Total++

		result, err := s.rescheduleOne(ctx, id, target, req.Reason, callerID)
		if err != nil {
			resp.Failed = append(resp.Failed, dto.BatchRescheduleFailure{SessionID: id, Reason: err.Error()})
			continue
		}
		resp.Succeeded = append(resp.Succeeded, *result)
	}

	s.logger.Info("批量调课完成",
		zap.Int("total", resp.Total),
		zap.Int("succeeded", len(resp.Succeeded)),
		zap.Int("failed", len(resp.Failed)))
	return resp, nil
}

func (s *sessionService) rescheduleOne(ctx context.Context, id string, target model.Slot, reason, callerID string) (*dto.SessionResponse, error) {
	sess, err := s.getSession(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsInPerson() {
		return nil, ErrSessionNotInPerson
	}
	if sess.Status != model.SessionScheduled {
		return nil, ErrSessionNotReschedulable
	}
	class, semester, err := s.loadOwner(ctx, sess)
	if err != nil {
		return nil, err
	}
	if semester.Status == model.SemesterCompleted {
		return nil, ErrSemesterCompleted
	}
	if !calendar.Within(target.Date, semester.StartDate, semester.EndDate) {
		return nil, ErrRescheduleOutOfSemester
	}
	if err := ensureRoom(ctx, s.repo, target.Room, s.logger); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, semesterLockKey(semester.SemesterID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		occ, err := NewConflictChecker(txRepo).Snapshot(ctx, semester.SemesterID)
		if err != nil {
			return err
		}
		q := SlotQuery{
			Level:            DateLevel,
			Date:             target.Date,
			Day:              target.Day,
			Slot:             target.TimeSlot,
			ExcludeSessionID: sess.SessionID,
		}
		if c := occ.TeacherConflict(class.TeacherID, q); c != nil {
			return c
		}
		if c := occ.RoomConflict(target.Room, q); c != nil {
			return c
		}

		var before *model.Slot
		if slot, ok := sess.EffectiveSlot(); ok {
			before = &slot
		}

		// 待排课次没有原始时间，手工指定即成为其原始排课
		changeType := model.ChangeReschedule
		wasPending := sess.IsPending
		if wasPending {
			sess.AssignOriginal(target)
			changeType = model.ChangeManual
		} else {
			sess.ApplyReschedule(target, reason)
		}
		sess.UpdatedBy = operatorPtr(callerID)

		if err := txRepo.Session.Update(ctx, sess); err != nil {
			return err
		}
		if err := s.propagate(ctx, txRepo, class, sess, target, wasPending); err != nil {
			return err
		}
		return recordSessionChange(ctx, txRepo, sess, changeType, before, &target, reason, callerID)
	})
	if err != nil {
		var conflict *ScheduleConflictError
		if !errors.As(err, &conflict) {
			s.logger.Error("调课失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("课次已调整",
		zap.String("session_id", id),
		zap.String("date", calendar.FormatDate(target.Date)),
		zap.String("slot", string(target.TimeSlot)),
		zap.String("room", target.Room))

	resp := toSessionResponse(sess)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// ResetToOriginal: 恢复原始排课
// ════════════════════════════════════════════════════════════

func (s *sessionService) ResetToOriginal(ctx context.Context, id string, callerID string) (*dto.SessionResponse, error) {
	sess, err := s.getSession(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsRescheduled {
		resp := toSessionResponse(sess)
		return &resp, nil
	}

	class, semester, err := s.loadOwner(ctx, sess)
	if err != nil {
		return nil, err
	}
	if semester.Status == model.SemesterCompleted {
		return nil, ErrSemesterCompleted
	}

	release, err := s.locker.Lock(ctx, semesterLockKey(semester.SemesterID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		before, _ := sess.EffectiveSlot()
		original, ok := sess.OriginalSlotValue()
		if !ok {
			// 无原始时间的调课记录不应存在，按数据异常处理
			return ErrSessionNotReschedulable
		}

		occ, err := NewConflictChecker(txRepo).Snapshot(ctx, semester.SemesterID)
		if err != nil {
			return err
		}
		q := SlotQuery{
			Level:            DateLevel,
			Date:             original.Date,
			Day:              original.Day,
			Slot:             original.TimeSlot,
			ExcludeSessionID: sess.SessionID,
		}
		if c := occ.TeacherConflict(class.TeacherID, q); c != nil {
			return c
		}
		if c := occ.RoomConflict(original.Room, q); c != nil {
			return c
		}

		sess.ClearReschedule()
		sess.UpdatedBy = operatorPtr(callerID)
		if err := txRepo.Session.Update(ctx, sess); err != nil {
			return err
		}
		if err := txRepo.StudentSchedule.UpdateBySession(ctx, sess.SessionID, original); err != nil {
			return err
		}
		return recordSessionChange(ctx, txRepo, sess, model.ChangeReset, &before, &original, "", callerID)
	})
	if err != nil {
		var conflict *ScheduleConflictError
		if !errors.As(err, &conflict) {
			s.logger.Error("恢复原始排课失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	resp := toSessionResponse(sess)
	return &resp, nil
}

// ────────────────────── ListChangeLogs ──────────────────────

func (s *sessionService) ListChangeLogs(ctx context.Context, id string, req *dto.SessionChangeLogListRequest) ([]dto.SessionChangeLogResponse, int64, error) {
	if _, err := s.getSession(ctx, s.repo, id); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.repo.ChangeLog.ListBySession(ctx, id, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.String("session_id", id), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SessionChangeLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, toChangeLogResponse(&logs[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *sessionService) getSession(ctx context.Context, repo *repository.Repository, id string) (*model.ClassSession, error) {
	sess, err := repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return sess, nil
}

// loadOwner 返回课次所属班级与学期，优先使用预加载关联
func (s *sessionService) loadOwner(ctx context.Context, sess *model.ClassSession) (*model.Class, *model.Semester, error) {
	class := sess.Class
	if class == nil {
		var err error
		if class, err = s.repo.Class.GetByID(ctx, sess.ClassID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrClassNotFound
			}
			return nil, nil, err
		}
	}
	semester := class.Semester
	if semester == nil {
		var err error
		if semester, err = s.repo.Semester.GetByID(ctx, class.SemesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrSemesterNotFound
			}
			return nil, nil, err
		}
	}
	return class, semester, nil
}

// propagate 将课次新的生效时间同步到学生课表；待排课次首次落位时为选课学生新建课表行
func (s *sessionService) propagate(ctx context.Context, txRepo *repository.Repository, class *model.Class,
	sess *model.ClassSession, target model.Slot, created bool) error {
	if !created {
		return txRepo.StudentSchedule.UpdateBySession(ctx, sess.SessionID, target)
	}
	enrollments, err := txRepo.Enrollment.ListActiveByClass(ctx, class.ClassID)
	if err != nil {
		return err
	}
	rows := materializeStudentSchedules(class, enrolledStudentIDs(enrollments), []*model.ClassSession{sess})
	return txRepo.StudentSchedule.BatchCreate(ctx, rows)
}

// parseRescheduleTarget 解析目标时间；星期省略时由日期推导
func parseRescheduleTarget(req *dto.RescheduleRequest) (model.Slot, error) {
	date, err := calendar.ParseDate(req.NewDate)
	if err != nil {
		return model.Slot{}, ErrRescheduleDateInvalid
	}
	day := model.WeekdayOf(date)
	if req.NewDay != "" && model.Weekday(req.NewDay) != day {
		return model.Slot{}, ErrRescheduleDayMismatch
	}
	slot := model.TimeSlot(req.NewSlot)
	if !slot.Valid() {
		return model.Slot{}, ErrInvalidTimeSlot
	}
	return model.Slot{Date: date, Day: day, TimeSlot: slot, Room: req.NewRoom}, nil
}

func toChangeLogResponse(log *model.SessionChangeLog) dto.SessionChangeLogResponse {
	resp := dto.SessionChangeLogResponse{
		ID:         log.ChangeLogID,
		SessionID:  log.SessionID,
		ChangeType: log.ChangeType,
		Reason:     log.Reason,
		CreatedAt:  log.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if log.OperatorID != nil {
		resp.OperatorID = *log.OperatorID
	}
	if len(log.Before) > 0 {
		var slot dto.ScheduleSlot
		if json.Unmarshal(log.Before, &slot) == nil {
			resp.Before = &slot
		}
	}
	if len(log.After) > 0 {
		var slot dto.ScheduleSlot
		if json.Unmarshal(log.After, &slot) == nil {
			resp.After = &slot
		}
	}
	return resp
}
