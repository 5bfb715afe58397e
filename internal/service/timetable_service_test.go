package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
)

// setupTestTimetableService 活动学期 HK1，CS101-01（t-1, 周二 CA1, A201），stu-1 已选课
func setupTestTimetableService(t *testing.T) (TimetableService, *mockStore, string) {
	t.Helper()
	store := newMockStore()
	seedCatalog(store)
	seedSemester(store, "HK1", model.SemesterUpcoming)
	class := mustCreateClass(t, store, classReq("CS101-01", "sub-std", "t-1", model.Tuesday, model.SlotCA1, "A201"))

	enrollSvc := NewEnrollmentService(store.repository(), NewRedisLocker(nil, 0), zap.NewNop())
	if _, err := enrollSvc.Enroll(context.Background(), &dto.EnrollRequest{StudentID: "stu-1", ClassID: class.ID}, ""); err != nil {
		t.Fatalf("选课应成功: %v", err)
	}
	store.semesters["sem-HK1"].Status = model.SemesterActive

	svc := NewTimetableService(store.repository(), zap.NewNop())
	svc.(*timetableService).now = func() time.Time { return time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC) }
	return svc, store, class.ID
}

func TestTimetableService_StudentWeek(t *testing.T) {
	svc, _, classID := setupTestTimetableService(t)

	resp, err := svc.StudentTimetable(context.Background(), "stu-1", &dto.TimetableRequest{Week: "2026-01-08"})
	if err != nil {
		t.Fatalf("StudentTimetable 应成功: %v", err)
	}
	if resp.WeekFrom != "2026-01-05" || resp.WeekTo != "2026-01-11" {
		t.Errorf("周区间应为周一至周日，实际 %s ~ %s", resp.WeekFrom, resp.WeekTo)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("期望本周 1 节课，实际 %d", len(resp.Entries))
	}
	e := resp.Entries[0]
	if e.ClassID != classID || e.ClassCode != "CS101-01" || e.SubjectName != "程序设计" {
		t.Errorf("班级信息错误: %+v", e)
	}
	if e.Date != "2026-01-06" || e.StartTime != "07:00" || e.EndTime != "09:30" || e.Room != "A201" {
		t.Errorf("课表条目错误: %+v", e)
	}
}

func TestTimetableService_StudentSemester(t *testing.T) {
	svc, _, _ := setupTestTimetableService(t)

	resp, err := svc.StudentTimetable(context.Background(), "stu-1", &dto.TimetableRequest{SemesterID: "sem-HK1"})
	if err != nil {
		t.Fatalf("StudentTimetable 应成功: %v", err)
	}
	if len(resp.Entries) != 10 {
		t.Fatalf("整个学期期望 10 节线下课，实际 %d", len(resp.Entries))
	}
	for i := 1; i < len(resp.Entries); i++ {
		if resp.Entries[i-1].Date > resp.Entries[i].Date {
			t.Fatal("课表应按日期排序")
		}
	}
}

func TestTimetableService_TeacherAndRoomFollowReschedule(t *testing.T) {
	svc, store, classID := setupTestTimetableService(t)
	sessionSvc := NewSessionService(store.repository(), NewRedisLocker(nil, 0), zap.NewNop())
	if _, err := sessionSvc.Reschedule(context.Background(), sessionID(classID, 1),
		rescheduleReq("2026-01-08", model.SlotCA3, "B105"), ""); err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	week := &dto.TimetableRequest{Week: "2026-01-05"}
	teacher, err := svc.TeacherTimetable(context.Background(), "t-1", week)
	if err != nil {
		t.Fatalf("TeacherTimetable 应成功: %v", err)
	}
	if len(teacher.Entries) != 1 || !teacher.Entries[0].IsRescheduled || teacher.Entries[0].Date != "2026-01-08" {
		t.Errorf("教师课表应显示调课后时间: %+v", teacher.Entries)
	}

	a201, err := svc.RoomTimetable(context.Background(), "A201", week)
	if err != nil {
		t.Fatalf("RoomTimetable 应成功: %v", err)
	}
	if len(a201.Entries) != 0 {
		t.Errorf("调走后 A201 本周应为空，实际 %+v", a201.Entries)
	}
	b105, _ := svc.RoomTimetable(context.Background(), "B105", week)
	if len(b105.Entries) != 1 || b105.Entries[0].TimeSlot != string(model.SlotCA3) {
		t.Errorf("B105 本周应有调入的课: %+v", b105.Entries)
	}

	student, _ := svc.StudentTimetable(context.Background(), "stu-1", week)
	if len(student.Entries) != 1 || student.Entries[0].Date != "2026-01-08" {
		t.Errorf("学生课表应同步调课: %+v", student.Entries)
	}
}

func TestTimetableService_Errors(t *testing.T) {
	svc, store, _ := setupTestTimetableService(t)
	ctx := context.Background()

	if _, err := svc.StudentTimetable(ctx, "stu-1", &dto.TimetableRequest{Week: "next week"}); !errors.Is(err, ErrTimetableWeekInvalid) {
		t.Errorf("期望 ErrTimetableWeekInvalid，实际: %v", err)
	}
	if _, err := svc.StudentTimetable(ctx, "nobody", &dto.TimetableRequest{}); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("期望 ErrStudentNotFound，实际: %v", err)
	}
	if _, err := svc.TeacherTimetable(ctx, "nobody", &dto.TimetableRequest{}); !errors.Is(err, ErrTeacherNotFound) {
		t.Errorf("期望 ErrTeacherNotFound，实际: %v", err)
	}
	if _, err := svc.RoomTimetable(ctx, "Z000", &dto.TimetableRequest{}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际: %v", err)
	}
	if _, err := svc.StudentTimetable(ctx, "stu-1", &dto.TimetableRequest{SemesterID: "missing"}); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}

	store.semesters["sem-HK1"].Status = model.SemesterCompleted
	if _, err := svc.StudentTimetable(ctx, "stu-1", &dto.TimetableRequest{}); !errors.Is(err, ErrTimetableNoActiveSemester) {
		t.Errorf("无活动学期时期望 ErrTimetableNoActiveSemester，实际: %v", err)
	}
}

// ── ICS 导出 ──

func TestTimetableService_ExportStudentICS(t *testing.T) {
	svc, _, _ := setupTestTimetableService(t)

	data, filename, err := svc.ExportStudentICS(context.Background(), "stu-1", "")
	if err != nil {
		t.Fatalf("ExportStudentICS 应成功: %v", err)
	}
	if filename != "timetable_stu-1.ics" {
		t.Errorf("文件名错误: %s", filename)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("导出内容应可被解析: %v", err)
	}
	events := cal.Events()
	if len(events) != 10 {
		t.Fatalf("期望 10 个事件，实际 %d", len(events))
	}

	first := events[0]
	if p := first.GetProperty(ics.ComponentPropertySummary); p == nil || !strings.Contains(p.Value, "CS101-01") {
		t.Errorf("事件标题应包含班级编码: %+v", p)
	}
	if p := first.GetProperty(ics.ComponentPropertyLocation); p == nil || p.Value != "A201" {
		t.Errorf("事件地点应为 A201: %+v", p)
	}
	start, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("事件开始时间应可解析: %v", err)
	}
	// 07:00 (UTC+7) = 00:00 UTC
	if want := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("第一次课开始时间期望 %v，实际 %v", want, start)
	}
}

func TestBuildStudentCalendar_SkipsCancelled(t *testing.T) {
	rows := []model.StudentSchedule{
		{StudentScheduleID: "r1", SessionDate: day(2026, 1, 6), TimeSlot: model.SlotCA2, Room: "A201", Status: model.StudentScheduleScheduled},
		{StudentScheduleID: "r2", SessionDate: day(2026, 1, 13), TimeSlot: model.SlotCA2, Room: "A201", Status: model.StudentScheduleCancelled},
	}
	cal := buildStudentCalendar(rows, time.Now())
	if n := len(cal.Events()); n != 1 {
		t.Errorf("已取消的课不应导出，期望 1 个事件，实际 %d", n)
	}
}
