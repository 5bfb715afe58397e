package service

import (
	"context"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// LifecycleJob 学期自动流转
//
// 每次运行：已过结束日期的 ACTIVE 学期结课；开始日期已到的 UPCOMING 学期中
// 开始最晚的一个被激活（激活会自动降级其他活动学期）。需通过配置显式开启。
type LifecycleJob struct {
	repo        *repository.Repository
	semesterSvc SemesterService
	logger      *zap.Logger
	now         func() time.Time
	cron        *cron.Cron
}

// NewLifecycleJob 创建 LifecycleJob
func NewLifecycleJob(repo *repository.Repository, semesterSvc SemesterService, logger *zap.Logger) *LifecycleJob {
	return &LifecycleJob{
		repo:        repo,
		semesterSvc: semesterSvc,
		logger:      logger,
		now:         time.Now,
	}
}

// Start 按 cron 表达式启动定时任务
func (j *LifecycleJob) Start(spec string) error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := j.RunOnce(ctx); err != nil {
			j.logger.Error("学期自动流转失败", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("学期自动流转任务已启动", zap.String("spec", spec))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (j *LifecycleJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// RunOnce 执行一次流转检查
func (j *LifecycleJob) RunOnce(ctx context.Context) error {
	today := calendar.DateOnly(j.now())

	active, err := j.repo.Semester.List(ctx, model.SemesterActive)
	if err != nil {
		return err
	}
	for _, sem := range active {
		if !today.After(calendar.DateOnly(sem.EndDate)) {
			continue
		}
		if _, err := j.semesterSvc.Complete(ctx, sem.SemesterID, ""); err != nil {
			j.logger.Warn("自动结课失败", zap.String("semester_id", sem.SemesterID), zap.Error(err))
			continue
		}
		j.logger.Info("学期已自动结课", zap.String("semester_id", sem.SemesterID))
	}

	upcoming, err := j.repo.Semester.List(ctx, model.SemesterUpcoming)
	if err != nil {
		return err
	}
	var due []model.Semester
	for _, sem := range upcoming {
		if !calendar.DateOnly(sem.StartDate).After(today) && !today.After(calendar.DateOnly(sem.EndDate)) {
			due = append(due, sem)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, k int) bool {
		return due[i].StartDate.After(due[k].StartDate)
	})

	report, err := j.semesterSvc.Activate(ctx, due[0].SemesterID, "")
	if err != nil {
		return err
	}
	j.logger.Info("学期已自动激活",
		zap.String("semester_id", due[0].SemesterID),
		zap.Int("assigned", report.SessionsAssigned),
		zap.Int("unassigned", report.SessionsUnassigned))
	return nil
}
