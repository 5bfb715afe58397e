package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Project-UTH/EduCourseManagement-sub000/config"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
	pkgerrors "github.com/Project-UTH/EduCourseManagement-sub000/pkg/errors"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/redis"
)

// ErrResourceBusy 同一学期的排课写操作正在进行
var ErrResourceBusy = pkgerrors.ErrResourceBusy

// Service 所有 Service 的聚合入口
type Service struct {
	Semester   SemesterService
	Class      ClassService
	Session    SessionService
	Enrollment EnrollmentService
	Timetable  TimetableService
	Export     ExportService
	Lifecycle  *LifecycleJob
}

// NewService 创建 Service 聚合；rdb 可为 nil（Redis 不可用时退化为无锁运行）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	locker := NewRedisLocker(rdb, cfg.Scheduling.LockTTL)
	assigner := NewGreedyAssigner(logger)

	semesterSvc := NewSemesterService(repo, locker, assigner, logger)
	return &Service{
		Semester:   semesterSvc,
		Class:      NewClassService(repo, locker, logger),
		Session:    NewSessionService(repo, locker, logger),
		Enrollment: NewEnrollmentService(repo, locker, logger),
		Timetable:  NewTimetableService(repo, logger),
		Export:     NewExportService(repo, logger),
		Lifecycle:  NewLifecycleJob(repo, semesterSvc, logger),
	}
}

// ── 学期级互斥 ──

// Locker 排课写操作互斥锁
type Locker interface {
	// Lock 获取 key 对应的锁，返回释放函数；锁被占用时返回 ErrResourceBusy
	Lock(ctx context.Context, key string) (func(), error)
}

type redisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

type noopLocker struct{}

// NewRedisLocker 基于 Redis 的锁；rdb 为 nil 时返回空实现
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) Locker {
	if rdb == nil {
		return noopLocker{}
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisLocker{rdb: rdb, ttl: ttl}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	release, err := l.rdb.AcquireLock(ctx, key, l.ttl)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}
	return release, nil
}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

func semesterLockKey(semesterID string) string {
	return "semester:" + semesterID
}

// ── 公共辅助函数 ──

// operatorPtr 操作人为空（定时任务）时写入 NULL
func operatorPtr(callerID string) *string {
	if callerID == "" {
		return nil
	}
	return &callerID
}

func toScheduleSlot(slot model.Slot) *dto.ScheduleSlot {
	period := slot.TimeSlot.Period()
	return &dto.ScheduleSlot{
		Date:      calendar.FormatDate(slot.Date),
		Day:       string(slot.Day),
		TimeSlot:  string(slot.TimeSlot),
		StartTime: period.Start,
		EndTime:   period.End,
		Room:      slot.Room,
	}
}

func toSessionResponse(s *model.ClassSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:               s.SessionID,
		ClassID:          s.ClassID,
		SessionNumber:    s.SessionNumber,
		SessionType:      s.SessionType,
		Category:         s.CategoryValue(),
		IsPending:        s.IsPending,
		IsRescheduled:    s.IsRescheduled,
		RescheduleReason: s.RescheduleReason,
		Status:           s.Status,
	}

	switch p := s.Placement().(type) {
	case model.Original:
		resp.Original = toScheduleSlot(p.Slot)
		resp.Effective = resp.Original
	case model.Rescheduled:
		resp.Original = toScheduleSlot(p.Original)
		resp.Actual = toScheduleSlot(p.Actual)
		resp.Effective = resp.Actual
	}
	return resp
}

// materializeStudentSchedules 为选课学生生成已排课线下课次的课表行
func materializeStudentSchedules(class *model.Class, studentIDs []string, sessions []*model.ClassSession) []model.StudentSchedule {
	var rows []model.StudentSchedule
	for _, sess := range sessions {
		if !sess.IsInPerson() || sess.Status == model.SessionCancelled {
			continue
		}
		slot, ok := sess.EffectiveSlot()
		if !ok {
			continue
		}
		for _, studentID := range studentIDs {
			row := model.StudentSchedule{
				StudentID:  studentID,
				ClassID:    class.ClassID,
				SessionID:  sess.SessionID,
				SemesterID: class.SemesterID,
				Status:     model.StudentScheduleScheduled,
			}
			row.ApplySlot(slot)
			rows = append(rows, row)
		}
	}
	return rows
}

func sessionPointers(sessions []model.ClassSession) []*model.ClassSession {
	ptrs := make([]*model.ClassSession, len(sessions))
	for i := range sessions {
		ptrs[i] = &sessions[i]
	}
	return ptrs
}

func enrolledStudentIDs(enrollments []model.Enrollment) []string {
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	return ids
}

// recordSessionChange 写入课次变更日志；before/after 为 nil 表示无排课
func recordSessionChange(ctx context.Context, repo *repository.Repository, sess *model.ClassSession,
	changeType string, before, after *model.Slot, reason, callerID string) error {
	log := &model.SessionChangeLog{
		SessionID:  sess.SessionID,
		ClassID:    sess.ClassID,
		ChangeType: changeType,
		Reason:     reason,
		OperatorID: operatorPtr(callerID),
	}
	if before != nil {
		raw, err := json.Marshal(toScheduleSlot(*before))
		if err != nil {
			return err
		}
		log.Before = raw
	}
	if after != nil {
		raw, err := json.Marshal(toScheduleSlot(*after))
		if err != nil {
			return err
		}
		log.After = raw
	}
	return repo.ChangeLog.Create(ctx, log)
}
