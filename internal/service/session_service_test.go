package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// setupTestSessionService 学期 HK1 下创建 CS101-01（t-1, 周二 CA1, A201），stu-1 已选课
func setupTestSessionService(t *testing.T) (SessionService, *mockStore, string) {
	t.Helper()
	store := newMockStore()
	seedCatalog(store)
	seedSemester(store, "HK1", model.SemesterUpcoming)
	created := mustCreateClass(t, store, classReq("CS101-01", "sub-std", "t-1", model.Tuesday, model.SlotCA1, "A201"))

	enrollSvc := NewEnrollmentService(store.repository(), NewRedisLocker(nil, 0), zap.NewNop())
	if _, err := enrollSvc.Enroll(context.Background(), &dto.EnrollRequest{StudentID: "stu-1", ClassID: created.ID}, ""); err != nil {
		t.Fatalf("选课应成功: %v", err)
	}
	return NewSessionService(store.repository(), NewRedisLocker(nil, 0), zap.NewNop()), store, created.ID
}

func sessionID(classID string, number int) string {
	return fmt.Sprintf("%s-s%d", classID, number)
}

func rescheduleReq(date string, slot model.TimeSlot, room string) *dto.RescheduleRequest {
	return &dto.RescheduleRequest{NewDate: date, NewSlot: string(slot), NewRoom: room, Reason: "教师出差"}
}

func studentRow(store *mockStore, studentID, sessionID string) *model.StudentSchedule {
	for _, row := range store.schedules {
		if row.StudentID == studentID && row.SessionID == sessionID {
			return row
		}
	}
	return nil
}

func changeLogsOf(store *mockStore, sessionID, changeType string) int {
	n := 0
	for _, l := range store.changeLogs {
		if l.SessionID == sessionID && l.ChangeType == changeType {
			n++
		}
	}
	return n
}

// ── Reschedule ──

func TestSessionService_Reschedule(t *testing.T) {
	svc, store, classID := setupTestSessionService(t)
	id := sessionID(classID, 1)

	resp, err := svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-08", model.SlotCA3, "B105"), "admin-1")
	if err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}
	if !resp.IsRescheduled || resp.RescheduleReason != "教师出差" {
		t.Errorf("应标记为已调课: %+v", resp)
	}
	if resp.Original == nil || resp.Original.Date != "2026-01-06" {
		t.Errorf("应保留原始时间: %+v", resp.Original)
	}
	if resp.Effective == nil || resp.Effective.Date != "2026-01-08" || resp.Effective.Day != string(model.Thursday) ||
		resp.Effective.TimeSlot != string(model.SlotCA3) || resp.Effective.Room != "B105" {
		t.Errorf("生效时间应为调课时间: %+v", resp.Effective)
	}

	row := studentRow(store, "stu-1", id)
	if row == nil || calendar.FormatDate(row.SessionDate) != "2026-01-08" || row.TimeSlot != model.SlotCA3 || row.Room != "B105" {
		t.Errorf("学生课表应同步为调课后时间: %+v", row)
	}
	if changeLogsOf(store, id, model.ChangeReschedule) != 1 {
		t.Error("应记录一条调课日志")
	}

	logs, total, err := svc.ListChangeLogs(context.Background(), id, &dto.SessionChangeLogListRequest{})
	if err != nil || total != 1 {
		t.Fatalf("ListChangeLogs 应返回 1 条: %v", err)
	}
	if logs[0].Before == nil || logs[0].Before.Date != "2026-01-06" || logs[0].After.Room != "B105" || logs[0].OperatorID != "admin-1" {
		t.Errorf("变更日志内容错误: %+v", logs[0])
	}
}

func TestSessionService_Reschedule_ConflictLeavesSessionUnchanged(t *testing.T) {
	svc, store, classID := setupTestSessionService(t)
	// CS101-02 每周四 CA3 在 B105 上课，2026-01-08 有课次
	mustCreateClass(t, store, classReq("CS101-02", "sub-std", "t-2", model.Thursday, model.SlotCA3, "B105"))
	// CS101-03 教师 t-1 每周四 CA4
	mustCreateClass(t, store, classReq("CS101-03", "sub-std", "t-1", model.Thursday, model.SlotCA4, "C301"))
	id := sessionID(classID, 1)

	_, err := svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-08", model.SlotCA3, "B105"), "")
	var conflict *ScheduleConflictError
	if !errors.As(err, &conflict) || conflict.Dimension != DimensionRoom {
		t.Fatalf("期望教室冲突，实际: %v", err)
	}
	if conflict.Date == nil || calendar.FormatDate(*conflict.Date) != "2026-01-08" {
		t.Errorf("冲突应带日期: %+v", conflict)
	}

	_, err = svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-08", model.SlotCA4, "A201"), "")
	if !errors.As(err, &conflict) || conflict.Dimension != DimensionTeacher {
		t.Fatalf("期望教师冲突，实际: %v", err)
	}

	sess := store.sessions[id]
	if sess.IsRescheduled || sess.ActualDate != nil || sess.RescheduleReason != "" {
		t.Errorf("冲突时课次不应被修改: %+v", sess)
	}
	if row := studentRow(store, "stu-1", id); calendar.FormatDate(row.SessionDate) != "2026-01-06" {
		t.Errorf("冲突时学生课表不应被修改: %+v", row)
	}
	if changeLogsOf(store, id, model.ChangeReschedule) != 0 {
		t.Error("冲突时不应记录日志")
	}

	// 空闲节次仍可调课
	if _, err := svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-08", model.SlotCA5, "B105"), ""); err != nil {
		t.Errorf("空闲时间应可调课: %v", err)
	}
}

func TestSessionService_Reschedule_Validation(t *testing.T) {
	tests := []struct {
		name    string
		session int
		req     *dto.RescheduleRequest
		prepare func(*mockStore)
		wantErr error
	}{
		{name: "线上课次", session: 11, req: rescheduleReq("2026-01-08", model.SlotCA3, "B105"), wantErr: ErrSessionNotInPerson},
		{name: "超出学期", session: 1, req: rescheduleReq("2026-03-20", model.SlotCA3, "B105"), wantErr: ErrRescheduleOutOfSemester},
		{name: "早于学期", session: 1, req: rescheduleReq("2026-01-04", model.SlotCA3, "B105"), wantErr: ErrRescheduleOutOfSemester},
		{name: "日期格式错误", session: 1, req: rescheduleReq("08/01/2026", model.SlotCA3, "B105"), wantErr: ErrRescheduleDateInvalid},
		{
			name:    "星期与日期不一致",
			session: 1,
			req:     &dto.RescheduleRequest{NewDate: "2026-01-08", NewDay: string(model.Monday), NewSlot: "CA3", NewRoom: "B105", Reason: "x"},
			wantErr: ErrRescheduleDayMismatch,
		},
		{name: "教室停用", session: 1, req: rescheduleReq("2026-01-08", model.SlotCA3, "X999"), wantErr: ErrRoomNotFound},
		{
			name:    "学期已结束",
			session: 1,
			req:     rescheduleReq("2026-01-08", model.SlotCA3, "B105"),
			prepare: func(m *mockStore) { m.semesters["sem-HK1"].Status = model.SemesterCompleted },
			wantErr: ErrSemesterCompleted,
		},
		{
			name:    "课次已结束",
			session: 1,
			req:     rescheduleReq("2026-01-08", model.SlotCA3, "B105"),
			prepare: func(m *mockStore) { m.sessions["class-CS101-01-s1"].Status = model.SessionCompleted },
			wantErr: ErrSessionNotReschedulable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, classID := setupTestSessionService(t)
			if tt.prepare != nil {
				tt.prepare(store)
			}
			_, err := svc.Reschedule(context.Background(), sessionID(classID, tt.session), tt.req, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}

	svc, _, _ := setupTestSessionService(t)
	if _, err := svc.Reschedule(context.Background(), "missing", rescheduleReq("2026-01-08", model.SlotCA3, "B105"), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际: %v", err)
	}
}

func TestSessionService_Reschedule_PendingBecomesManualAssignment(t *testing.T) {
	svc, store, _ := setupTestSessionService(t)
	ext := mustCreateClass(t, store, classReq("CS201-01", "sub-ext", "t-2", model.Monday, model.SlotCA2, "C301"))
	enrollDirect(store, "stu-2", ext.ID)
	id := sessionID(ext.ID, 11)

	resp, err := svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-09", model.SlotCA2, "C301"), "")
	if err != nil {
		t.Fatalf("为待排课次指定时间应成功: %v", err)
	}
	if resp.IsPending || resp.IsRescheduled {
		t.Errorf("手工指定后应为普通已排课次: %+v", resp)
	}
	if resp.Original == nil || resp.Original.Date != "2026-01-09" || resp.Original.Day != string(model.Friday) {
		t.Errorf("指定时间应成为原始时间: %+v", resp.Original)
	}
	if changeLogsOf(store, id, model.ChangeManual) != 1 {
		t.Error("应记录一条手工指定日志")
	}
	if row := studentRow(store, "stu-2", id); row == nil || row.TimeSlot != model.SlotCA2 {
		t.Errorf("已选课学生应获得新课表行: %+v", row)
	}
}

// ── ResetToOriginal ──

func TestSessionService_ResetToOriginal(t *testing.T) {
	svc, store, classID := setupTestSessionService(t)
	id := sessionID(classID, 2)

	if _, err := svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-15", model.SlotCA3, "B105"), ""); err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}
	resp, err := svc.ResetToOriginal(context.Background(), id, "admin-1")
	if err != nil {
		t.Fatalf("ResetToOriginal 应成功: %v", err)
	}
	if resp.IsRescheduled || resp.Actual != nil || resp.RescheduleReason != "" {
		t.Errorf("恢复后不应保留调课信息: %+v", resp)
	}
	if resp.Effective == nil || *resp.Effective != *resp.Original || resp.Effective.Date != "2026-01-13" {
		t.Errorf("生效时间应恢复为原始时间: %+v", resp.Effective)
	}
	if row := studentRow(store, "stu-1", id); calendar.FormatDate(row.SessionDate) != "2026-01-13" || row.Room != "A201" {
		t.Errorf("学生课表应恢复: %+v", row)
	}
	if changeLogsOf(store, id, model.ChangeReset) != 1 {
		t.Error("应记录一条恢复日志")
	}

	// 未调课时直接成功，不记日志
	if _, err := svc.ResetToOriginal(context.Background(), id, ""); err != nil {
		t.Errorf("未调课的课次恢复应直接成功: %v", err)
	}
	if changeLogsOf(store, id, model.ChangeReset) != 1 {
		t.Error("未调课时不应再记日志")
	}
}

func TestSessionService_ResetToOriginal_OriginalSlotTaken(t *testing.T) {
	svc, store, classID := setupTestSessionService(t)
	other := mustCreateClass(t, store, classReq("CS101-02", "sub-std", "t-2", model.Monday, model.SlotCA2, "B105"))
	id := sessionID(classID, 1)

	if _, err := svc.Reschedule(context.Background(), id, rescheduleReq("2026-01-08", model.SlotCA3, "B105"), ""); err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}
	// 另一班借用了原来的 2026-01-06 CA1 A201
	if _, err := svc.Reschedule(context.Background(), sessionID(other.ID, 1), rescheduleReq("2026-01-06", model.SlotCA1, "A201"), ""); err != nil {
		t.Fatalf("空出的时间应可被占用: %v", err)
	}

	_, err := svc.ResetToOriginal(context.Background(), id, "")
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("原始时间被占用时期望 ErrScheduleConflict，实际: %v", err)
	}
	if !store.sessions[id].IsRescheduled {
		t.Error("冲突时应保持调课状态")
	}
}

// ── BatchReschedule ──

func TestSessionService_BatchReschedule_PartialSuccess(t *testing.T) {
	svc, store, classID := setupTestSessionService(t)

	req := &dto.BatchRescheduleRequest{
		SessionIDs: []string{
			sessionID(classID, 2),
			sessionID(classID, 3),
			sessionID(classID, 2),  // 重复
			sessionID(classID, 11), // 线上
			"missing",
		},
		RescheduleRequest: *rescheduleReq("2026-03-12", model.SlotCA4, "C301"),
	}
	resp, err := svc.BatchReschedule(context.Background(), req, "")
	if err != nil {
		t.Fatalf("BatchReschedule 不应整体失败: %v", err)
	}
	if resp.Total != 4 {
		t.Errorf("重复 ID 应去重，期望 4，实际 %d", resp.Total)
	}
	if len(resp.Succeeded) != 1 || resp.Succeeded[0].ID != sessionID(classID, 2) {
		t.Fatalf("期望仅第 2 次课成功，实际 %+v", resp.Succeeded)
	}
	if len(resp.Failed) != 3 {
		t.Fatalf("期望 3 项失败，实际 %+v", resp.Failed)
	}
	reasons := map[string]string{}
	for _, f := range resp.Failed {
		reasons[f.SessionID] = f.Reason
	}
	if reasons[sessionID(classID, 11)] != ErrSessionNotInPerson.Error() {
		t.Errorf("线上课次失败原因错误: %s", reasons[sessionID(classID, 11)])
	}
	if reasons["missing"] != ErrSessionNotFound.Error() {
		t.Errorf("不存在课次失败原因错误: %s", reasons["missing"])
	}
	if _, ok := reasons[sessionID(classID, 3)]; !ok {
		t.Error("与同批已调课次冲突的应失败")
	}

	if !store.sessions[sessionID(classID, 2)].IsRescheduled || store.sessions[sessionID(classID, 3)].IsRescheduled {
		t.Error("成功项应已调课，失败项不应修改")
	}
}

func TestSessionService_BatchReschedule_SizeLimits(t *testing.T) {
	svc, _, classID := setupTestSessionService(t)

	empty := &dto.BatchRescheduleRequest{RescheduleRequest: *rescheduleReq("2026-03-12", model.SlotCA4, "C301")}
	if _, err := svc.BatchReschedule(context.Background(), empty, ""); !errors.Is(err, ErrBatchSizeInvalid) {
		t.Errorf("空列表期望 ErrBatchSizeInvalid，实际: %v", err)
	}

	tooMany := &dto.BatchRescheduleRequest{RescheduleRequest: *rescheduleReq("2026-03-12", model.SlotCA4, "C301")}
	for i := 0; i <= MaxBatchReschedule; i++ {
		tooMany.SessionIDs = append(tooMany.SessionIDs, sessionID(classID, i+1))
	}
	if _, err := svc.BatchReschedule(context.Background(), tooMany, ""); !errors.Is(err, ErrBatchSizeInvalid) {
		t.Errorf("超过 50 个期望 ErrBatchSizeInvalid，实际: %v", err)
	}
}

// ── 查询 ──

func TestSessionService_ListByClass(t *testing.T) {
	svc, _, classID := setupTestSessionService(t)
	if _, err := svc.Reschedule(context.Background(), sessionID(classID, 4), rescheduleReq("2026-01-30", model.SlotCA2, "C301"), ""); err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	all, err := svc.ListByClass(context.Background(), classID, &dto.SessionListRequest{})
	if err != nil || len(all) != 15 {
		t.Fatalf("期望 15 个课次: %v %d", err, len(all))
	}
	online, _ := svc.ListByClass(context.Background(), classID, &dto.SessionListRequest{Type: model.SessionELearning})
	if len(online) != 5 {
		t.Errorf("期望 5 个线上课次，实际 %d", len(online))
	}
	moved, _ := svc.ListByClass(context.Background(), classID, &dto.SessionListRequest{Rescheduled: true})
	if len(moved) != 1 || moved[0].SessionNumber != 4 {
		t.Errorf("期望仅第 4 次课已调课，实际 %+v", moved)
	}
	for _, s := range online {
		if s.Effective != nil || s.Original != nil {
			t.Errorf("线上课次不应有时间: %+v", s)
		}
	}

	if _, err := svc.ListByClass(context.Background(), "missing", &dto.SessionListRequest{}); !errors.Is(err, ErrClassNotFound) {
		t.Errorf("期望 ErrClassNotFound，实际: %v", err)
	}
}
