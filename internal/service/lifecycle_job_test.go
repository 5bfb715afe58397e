package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

func setupTestLifecycleJob(now time.Time) (*LifecycleJob, *mockStore) {
	svc, store := setupTestSemesterService()
	old := seedSemester(store, "HK0", model.SemesterActive)
	old.StartDate = day(2025, 9, 1)
	old.EndDate = day(2025, 12, 31)
	seedSemester(store, "HK1", model.SemesterUpcoming)

	job := NewLifecycleJob(store.repository(), svc, zap.NewNop())
	job.now = func() time.Time { return now }
	return job, store
}

func TestLifecycleJob_CompletesAndActivates(t *testing.T) {
	job, store := setupTestLifecycleJob(time.Date(2026, 1, 5, 1, 0, 0, 0, time.UTC))

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce 应成功: %v", err)
	}
	if s := store.semesters["sem-HK0"].Status; s != model.SemesterCompleted {
		t.Errorf("过期学期应结课，实际 %s", s)
	}
	if s := store.semesters["sem-HK1"].Status; s != model.SemesterActive {
		t.Errorf("已到开始日期的学期应激活，实际 %s", s)
	}
	if n := activeCount(store); n != 1 {
		t.Errorf("活动学期应恰好 1 个，实际 %d", n)
	}
}

func TestLifecycleJob_NothingDue(t *testing.T) {
	job, store := setupTestLifecycleJob(time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC))

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce 应成功: %v", err)
	}
	if s := store.semesters["sem-HK0"].Status; s != model.SemesterActive {
		t.Errorf("未到结束日期不应结课，实际 %s", s)
	}
	if s := store.semesters["sem-HK1"].Status; s != model.SemesterUpcoming {
		t.Errorf("未到开始日期不应激活，实际 %s", s)
	}
}

func TestLifecycleJob_PicksLatestDue(t *testing.T) {
	job, store := setupTestLifecycleJob(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC))
	later := seedSemester(store, "HK1B", model.SemesterUpcoming)
	later.StartDate = day(2026, 1, 19)

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce 应成功: %v", err)
	}
	if s := store.semesters["sem-HK1B"].Status; s != model.SemesterActive {
		t.Errorf("开始最晚的到期学期应激活，实际 %s", s)
	}
	if s := store.semesters["sem-HK1"].Status; s != model.SemesterUpcoming {
		t.Errorf("其余到期学期保持 UPCOMING，实际 %s", s)
	}
}

func TestLifecycleJob_StartInvalidSpec(t *testing.T) {
	job, _ := setupTestLifecycleJob(time.Now())
	if err := job.Start("not a cron"); err == nil {
		t.Error("非法 cron 表达式应返回错误")
	}
	job.Stop()
}
