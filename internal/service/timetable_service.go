package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/dto"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// ── 课表模块业务错误 ──

var (
	ErrTimetableWeekInvalid      = errors.New("周参数格式错误，应为 YYYY-MM-DD")
	ErrTimetableNoActiveSemester = errors.New("当前无活动学期，请指定学期")
)

// campusTimezone 节次时间以校区本地时间为准
const campusTimezone = "Asia/Ho_Chi_Minh"

// TimetableService 课表查询接口
//
// 学生课表读取物化的 student_schedules；教师与教室课表直接从课次解析生效时间。
// 未指定学期时使用当前活动学期，未指定周时返回整个学期。
type TimetableService interface {
	StudentTimetable(ctx context.Context, studentID string, req *dto.TimetableRequest) (*dto.TimetableResponse, error)
	TeacherTimetable(ctx context.Context, teacherID string, req *dto.TimetableRequest) (*dto.TimetableResponse, error)
	RoomTimetable(ctx context.Context, roomCode string, req *dto.TimetableRequest) (*dto.TimetableResponse, error)
	// ExportStudentICS 导出学生整学期课表为 iCalendar
	ExportStudentICS(ctx context.Context, studentID, semesterID string) ([]byte, string, error)
}

type timetableService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── StudentTimetable ──────────────────────

func (s *timetableService) StudentTimetable(ctx context.Context, studentID string, req *dto.TimetableRequest) (*dto.TimetableResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	semesterID, err := s.resolveSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}
	from, to, err := parseWeek(req.Week)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.StudentSchedule.ListByStudent(ctx, studentID, semesterID, from, to)
	if err != nil {
		s.logger.Error("查询学生课表失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	resp := newTimetableResponse(studentID, from, to)
	for i := range rows {
		row := &rows[i]
		entry := dto.TimetableEntry{
			SessionID: row.SessionID,
			ClassID:   row.ClassID,
			ScheduleSlot: *toScheduleSlot(model.Slot{
				Date:     row.SessionDate,
				Day:      row.DayOfWeek,
				TimeSlot: row.TimeSlot,
				Room:     row.Room,
			}),
		}
		fillClassInfo(&entry, row.Class)
		resp.Entries = append(resp.Entries, entry)
	}
	sortEntries(resp.Entries)
	return resp, nil
}

// ────────────────────── TeacherTimetable ──────────────────────

func (s *timetableService) TeacherTimetable(ctx context.Context, teacherID string, req *dto.TimetableRequest) (*dto.TimetableResponse, error) {
	if _, err := s.repo.Teacher.GetByID(ctx, teacherID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}
	return s.sessionTimetable(ctx, teacherID, req, func(sess *model.ClassSession, _ model.Slot) bool {
		return sess.Class != nil && sess.Class.TeacherID == teacherID
	})
}

// ────────────────────── RoomTimetable ──────────────────────

func (s *timetableService) RoomTimetable(ctx context.Context, roomCode string, req *dto.TimetableRequest) (*dto.TimetableResponse, error) {
	if _, err := s.repo.Room.GetByCode(ctx, roomCode); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("room", roomCode), zap.Error(err))
		return nil, err
	}
	return s.sessionTimetable(ctx, roomCode, req, func(_ *model.ClassSession, slot model.Slot) bool {
		return slot.Room == roomCode
	})
}

// sessionTimetable 遍历学期课次，按生效时间过滤出属于 owner 的条目
func (s *timetableService) sessionTimetable(ctx context.Context, ownerID string, req *dto.TimetableRequest,
	match func(*model.ClassSession, model.Slot) bool) (*dto.TimetableResponse, error) {
	semesterID, err := s.resolveSemester(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}
	from, to, err := parseWeek(req.Week)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session.ListBySemester(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询学期课次失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}

	resp := newTimetableResponse(ownerID, from, to)
	for i := range sessions {
		sess := &sessions[i]
		if sess.Status == model.SessionCancelled {
			continue
		}
		slot, ok := sess.EffectiveSlot()
		if !ok || !match(sess, slot) {
			continue
		}
		if from != nil && !calendar.Within(slot.Date, *from, *to) {
			continue
		}
		entry := dto.TimetableEntry{
			SessionID:     sess.SessionID,
			ClassID:       sess.ClassID,
			IsRescheduled: sess.IsRescheduled,
			ScheduleSlot:  *toScheduleSlot(slot),
		}
		fillClassInfo(&entry, sess.Class)
		resp.Entries = append(resp.Entries, entry)
	}
	sortEntries(resp.Entries)
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// ExportStudentICS: 学生课表导出为 .ics
// ════════════════════════════════════════════════════════════
//
// 每个学生课表行生成一个 VEVENT，UID 使用课表行 ID 保证重复导入时可去重。

func (s *timetableService) ExportStudentICS(ctx context.Context, studentID, semesterID string) ([]byte, string, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, "", err
	}
	semesterID, err := s.resolveSemester(ctx, semesterID)
	if err != nil {
		return nil, "", err
	}

	rows, err := s.repo.StudentSchedule.ListByStudent(ctx, studentID, semesterID, nil, nil)
	if err != nil {
		s.logger.Error("查询学生课表失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, "", err
	}

	cal := buildStudentCalendar(rows, s.now())
	filename := fmt.Sprintf("timetable_%s.ics", studentID)
	return []byte(cal.Serialize()), filename, nil
}

func buildStudentCalendar(rows []model.StudentSchedule, stamp time.Time) *ics.Calendar {
	loc, err := time.LoadLocation(campusTimezone)
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//EduCourse//Timetable//VI")
	cal.SetXWRCalName("课表")
	cal.SetXWRTimezone(campusTimezone)

	for i := range rows {
		row := &rows[i]
		if row.Status == model.StudentScheduleCancelled {
			continue
		}
		start, end := slotBounds(row.SessionDate, row.TimeSlot, loc)

		event := cal.AddEvent(row.StudentScheduleID + "@edu-course")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetLocation(row.Room)
		summary := row.ClassID
		if row.Class != nil {
			summary = row.Class.ClassCode
			if row.Class.Subject != nil {
				summary = fmt.Sprintf("%s %s", row.Class.ClassCode, row.Class.Subject.Name)
			}
		}
		event.SetSummary(summary)
		event.SetDescription(fmt.Sprintf("节次 %s", row.TimeSlot))
	}
	return cal
}

// slotBounds 计算节次在指定日期的起止时刻
func slotBounds(date time.Time, slot model.TimeSlot, loc *time.Location) (time.Time, time.Time) {
	period := slot.Period()
	at := func(hhmm string) time.Time {
		t, _ := time.Parse("15:04", hhmm)
		return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	}
	return at(period.Start), at(period.End)
}

// ── 内部辅助方法 ──

func (s *timetableService) ensureStudent(ctx context.Context, studentID string) error {
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		return err
	}
	return nil
}

func (s *timetableService) resolveSemester(ctx context.Context, semesterID string) (string, error) {
	if semesterID != "" {
		if _, err := s.repo.Semester.GetByID(ctx, semesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrSemesterNotFound
			}
			return "", err
		}
		return semesterID, nil
	}
	current, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTimetableNoActiveSemester
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return "", err
	}
	return current.SemesterID, nil
}

// parseWeek 解析周参数，返回该周周一与周日；为空时返回 nil
func parseWeek(week string) (*time.Time, *time.Time, error) {
	if week == "" {
		return nil, nil, nil
	}
	d, err := calendar.ParseDate(week)
	if err != nil {
		return nil, nil, ErrTimetableWeekInvalid
	}
	from := calendar.WeekOf(d)
	to := from.AddDate(0, 0, 6)
	return &from, &to, nil
}

func newTimetableResponse(ownerID string, from, to *time.Time) *dto.TimetableResponse {
	resp := &dto.TimetableResponse{OwnerID: ownerID, Entries: []dto.TimetableEntry{}}
	if from != nil {
		resp.WeekFrom = calendar.FormatDate(*from)
		resp.WeekTo = calendar.FormatDate(*to)
	}
	return resp
}

func fillClassInfo(entry *dto.TimetableEntry, class *model.Class) {
	if class == nil {
		return
	}
	entry.ClassCode = class.ClassCode
	if class.Subject != nil {
		entry.SubjectName = class.Subject.Name
	}
}

func sortEntries(entries []dto.TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].TimeSlot < entries[j].TimeSlot
	})
}
