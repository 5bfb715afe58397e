package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Project-UTH/EduCourseManagement-sub000/internal/model"
	"github.com/Project-UTH/EduCourseManagement-sub000/internal/repository"
	"github.com/Project-UTH/EduCourseManagement-sub000/pkg/calendar"
)

// ── 共享内存存储 ──
//
// 各 mock 仓储共用一份数据，便于跨实体查询（如按学期列出课次）。
// 读取一律返回副本，只有显式 Update 才会改变存储，行为与数据库一致。

type mockStore struct {
	seq         int
	semesters   map[string]*model.Semester
	classes     map[string]*model.Class
	sessions    map[string]*model.ClassSession
	enrollments map[string]*model.Enrollment
	schedules   map[string]*model.StudentSchedule
	changeLogs  []model.SessionChangeLog
	subjects    map[string]*model.Subject
	teachers    map[string]*model.Teacher
	rooms       map[string]*model.Room
	students    map[string]*model.Student

	// beforeAdjust 在已选人数调整前执行一次，模拟并发提交的选课
	beforeAdjust func(classID string)
}

func newMockStore() *mockStore {
	return &mockStore{
		semesters:   make(map[string]*model.Semester),
		classes:     make(map[string]*model.Class),
		sessions:    make(map[string]*model.ClassSession),
		enrollments: make(map[string]*model.Enrollment),
		schedules:   make(map[string]*model.StudentSchedule),
		subjects:    make(map[string]*model.Subject),
		teachers:    make(map[string]*model.Teacher),
		rooms:       make(map[string]*model.Room),
		students:    make(map[string]*model.Student),
	}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		Semester:        &mockSemesterRepo{m},
		Class:           &mockClassRepo{m},
		Session:         &mockSessionRepo{m},
		Enrollment:      &mockEnrollmentRepo{m},
		StudentSchedule: &mockStudentScheduleRepo{m},
		ChangeLog:       &mockChangeLogRepo{m},
		Subject:         &mockSubjectRepo{m},
		Teacher:         &mockTeacherRepo{m},
		Room:            &mockRoomRepo{m},
		Student:         &mockStudentRepo{m},
	}
}

// classWithRefs 返回带关联的班级副本
func (m *mockStore) classWithRefs(id string) (*model.Class, bool) {
	c, ok := m.classes[id]
	if !ok {
		return nil, false
	}
	cp := *c
	if sub, ok := m.subjects[c.SubjectID]; ok {
		s := *sub
		cp.Subject = &s
	}
	if t, ok := m.teachers[c.TeacherID]; ok {
		tc := *t
		cp.Teacher = &tc
	}
	if sem, ok := m.semesters[c.SemesterID]; ok {
		sc := *sem
		cp.Semester = &sc
	}
	return &cp, true
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct{ m *mockStore }

func (r *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	if semester.SemesterID == "" {
		semester.SemesterID = "sem-" + semester.Code
	}
	cp := *semester
	r.m.semesters[semester.SemesterID] = &cp
	return nil
}

func (r *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := r.m.semesters[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSemesterRepo) GetByCode(_ context.Context, code string) (*model.Semester, error) {
	for _, s := range r.m.semesters {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSemesterRepo) GetCurrent(_ context.Context) (*model.Semester, error) {
	for _, s := range r.m.semesters {
		if s.Status == model.SemesterActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSemesterRepo) List(_ context.Context, status string) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range r.m.semesters {
		if status == "" || s.Status == status {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (r *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	cp := *semester
	r.m.semesters[semester.SemesterID] = &cp
	return nil
}

func (r *mockSemesterRepo) Delete(_ context.Context, id string, _ string) error {
	delete(r.m.semesters, id)
	return nil
}

func (r *mockSemesterRepo) CompleteActiveExcept(_ context.Context, exceptID string, completedAt time.Time) ([]string, error) {
	var ids []string
	for id, s := range r.m.semesters {
		if id != exceptID && s.Status == model.SemesterActive {
			s.Status = model.SemesterCompleted
			at := completedAt
			s.CompletedAt = &at
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct{ m *mockStore }

func (r *mockClassRepo) Create(_ context.Context, class *model.Class) error {
	if class.ClassID == "" {
		class.ClassID = "class-" + class.ClassCode
	}
	cp := *class
	cp.Subject, cp.Teacher, cp.Semester = nil, nil, nil
	r.m.classes[class.ClassID] = &cp
	return nil
}

func (r *mockClassRepo) GetByID(_ context.Context, id string) (*model.Class, error) {
	if c, ok := r.m.classWithRefs(id); ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockClassRepo) GetByCode(_ context.Context, code string) (*model.Class, error) {
	for id, c := range r.m.classes {
		if c.ClassCode == code {
			cp, _ := r.m.classWithRefs(id)
			return cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockClassRepo) List(_ context.Context, filter repository.ClassFilter, offset, limit int) ([]model.Class, int64, error) {
	var result []model.Class
	for id, c := range r.m.classes {
		if filter.SemesterID != "" && c.SemesterID != filter.SemesterID {
			continue
		}
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.SubjectID != "" && c.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp, _ := r.m.classWithRefs(id)
		result = append(result, *cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClassCode < result[j].ClassCode })
	total := int64(len(result))
	if offset >= len(result) {
		return []model.Class{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (r *mockClassRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.Class, error) {
	classes, _, err := r.List(ctx, repository.ClassFilter{SemesterID: semesterID}, 0, len(r.m.classes))
	return classes, err
}

func (r *mockClassRepo) CountBySemester(_ context.Context, semesterID string) (int64, error) {
	var n int64
	for _, c := range r.m.classes {
		if c.SemesterID == semesterID {
			n++
		}
	}
	return n, nil
}

func (r *mockClassRepo) Update(_ context.Context, class *model.Class) error {
	stored, ok := r.m.classes[class.ClassID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.TeacherID = class.TeacherID
	stored.MaxStudents = class.MaxStudents
	stored.Status = class.Status
	stored.FixedDay = class.FixedDay
	stored.FixedSlot = class.FixedSlot
	stored.FixedRoom = class.FixedRoom
	stored.Version++
	class.Version = stored.Version
	return nil
}

func (r *mockClassRepo) UpdateStatus(_ context.Context, id, status string) error {
	if c, ok := r.m.classes[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *mockClassRepo) UpdateStatusBySemester(_ context.Context, semesterID string, from []string, to string) (int64, error) {
	var n int64
	for _, c := range r.m.classes {
		if c.SemesterID != semesterID {
			continue
		}
		for _, f := range from {
			if c.Status == f {
				c.Status = to
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *mockClassRepo) AdjustEnrolled(_ context.Context, id string, delta int) (int, bool, error) {
	if hook := r.m.beforeAdjust; hook != nil {
		r.m.beforeAdjust = nil
		hook(id)
	}
	c, ok := r.m.classes[id]
	if !ok {
		return 0, false, nil
	}
	next := c.EnrolledCount + delta
	if next < 0 || next > c.MaxStudents {
		return 0, false, nil
	}
	c.EnrolledCount = next
	return next, true, nil
}

func (r *mockClassRepo) Delete(_ context.Context, id string, _ string) error {
	delete(r.m.classes, id)
	return nil
}

// ── Mock ClassSessionRepository ──

type mockSessionRepo struct{ m *mockStore }

func (r *mockSessionRepo) BatchCreate(_ context.Context, sessions []model.ClassSession) error {
	for i := range sessions {
		if sessions[i].SessionID == "" {
			sessions[i].SessionID = fmt.Sprintf("%s-s%d", sessions[i].ClassID, sessions[i].SessionNumber)
		}
		cp := sessions[i]
		cp.Class = nil
		r.m.sessions[cp.SessionID] = &cp
	}
	return nil
}

func (r *mockSessionRepo) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Class, _ = r.m.classWithRefs(s.ClassID)
	return &cp, nil
}

func (r *mockSessionRepo) ListByClass(_ context.Context, classID string, filter repository.SessionFilter) ([]model.ClassSession, error) {
	var result []model.ClassSession
	for _, s := range r.m.sessions {
		if s.ClassID != classID {
			continue
		}
		if filter.SessionType != "" && s.SessionType != filter.SessionType {
			continue
		}
		if filter.RescheduledOnly && !s.IsRescheduled {
			continue
		}
		if filter.PendingOnly && !s.IsPending {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SessionNumber < result[j].SessionNumber })
	return result, nil
}

func (r *mockSessionRepo) ListBySemester(_ context.Context, semesterID string) ([]model.ClassSession, error) {
	var result []model.ClassSession
	for _, s := range r.m.sessions {
		c, ok := r.m.classes[s.ClassID]
		if !ok || c.SemesterID != semesterID {
			continue
		}
		cp := *s
		cp.Class, _ = r.m.classWithRefs(s.ClassID)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ClassID != result[j].ClassID {
			return result[i].ClassID < result[j].ClassID
		}
		return result[i].SessionNumber < result[j].SessionNumber
	})
	return result, nil
}

func (r *mockSessionRepo) Update(_ context.Context, session *model.ClassSession) error {
	if _, ok := r.m.sessions[session.SessionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *session
	cp.Class = nil
	r.m.sessions[session.SessionID] = &cp
	return nil
}

func (r *mockSessionRepo) DeleteByClass(_ context.Context, classID string) error {
	for id, s := range r.m.sessions {
		if s.ClassID == classID {
			delete(r.m.sessions, id)
		}
	}
	return nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ m *mockStore }

func (r *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	if enrollment.EnrollmentID == "" {
		enrollment.EnrollmentID = r.m.nextID("enr")
	}
	cp := *enrollment
	r.m.enrollments[enrollment.EnrollmentID] = &cp
	return nil
}

func (r *mockEnrollmentRepo) GetActive(_ context.Context, studentID, classID string) (*model.Enrollment, error) {
	for _, e := range r.m.enrollments {
		if e.StudentID == studentID && e.ClassID == classID && e.Status == model.EnrollmentEnrolled {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockEnrollmentRepo) ListActiveByClass(_ context.Context, classID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range r.m.enrollments {
		if e.ClassID == classID && e.Status == model.EnrollmentEnrolled {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (r *mockEnrollmentRepo) CountActiveByClass(ctx context.Context, classID string) (int64, error) {
	list, _ := r.ListActiveByClass(ctx, classID)
	return int64(len(list)), nil
}

func (r *mockEnrollmentRepo) Update(_ context.Context, enrollment *model.Enrollment) error {
	cp := *enrollment
	r.m.enrollments[enrollment.EnrollmentID] = &cp
	return nil
}

// ── Mock StudentScheduleRepository ──

type mockStudentScheduleRepo struct{ m *mockStore }

func (r *mockStudentScheduleRepo) BatchCreate(_ context.Context, rows []model.StudentSchedule) error {
	for i := range rows {
		if rows[i].StudentScheduleID == "" {
			rows[i].StudentScheduleID = r.m.nextID("ss")
		}
		cp := rows[i]
		cp.Class = nil
		r.m.schedules[cp.StudentScheduleID] = &cp
	}
	return nil
}

func (r *mockStudentScheduleRepo) FindConflict(_ context.Context, studentID string, date time.Time, slot model.TimeSlot, excludeClassID string) (*model.StudentSchedule, error) {
	for _, row := range r.m.schedules {
		if row.StudentID == studentID && row.ClassID != excludeClassID &&
			row.TimeSlot == slot && calendar.SameDate(row.SessionDate, date) &&
			row.Status != model.StudentScheduleCancelled {
			cp := *row
			cp.Class, _ = r.m.classWithRefs(row.ClassID)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockStudentScheduleRepo) ListByStudent(_ context.Context, studentID, semesterID string, from, to *time.Time) ([]model.StudentSchedule, error) {
	var result []model.StudentSchedule
	for _, row := range r.m.schedules {
		if row.StudentID != studentID {
			continue
		}
		if semesterID != "" && row.SemesterID != semesterID {
			continue
		}
		if from != nil && row.SessionDate.Before(*from) {
			continue
		}
		if to != nil && row.SessionDate.After(*to) {
			continue
		}
		cp := *row
		cp.Class, _ = r.m.classWithRefs(row.ClassID)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].SessionDate.Equal(result[j].SessionDate) {
			return result[i].SessionDate.Before(result[j].SessionDate)
		}
		return result[i].TimeSlot < result[j].TimeSlot
	})
	return result, nil
}

func (r *mockStudentScheduleRepo) UpdateBySession(_ context.Context, sessionID string, slot model.Slot) error {
	for _, row := range r.m.schedules {
		if row.SessionID == sessionID {
			row.ApplySlot(slot)
		}
	}
	return nil
}

func (r *mockStudentScheduleRepo) DeleteByStudentAndClass(_ context.Context, studentID, classID string) error {
	for id, row := range r.m.schedules {
		if row.StudentID == studentID && row.ClassID == classID {
			delete(r.m.schedules, id)
		}
	}
	return nil
}

func (r *mockStudentScheduleRepo) DeleteByClass(_ context.Context, classID string) error {
	for id, row := range r.m.schedules {
		if row.ClassID == classID {
			delete(r.m.schedules, id)
		}
	}
	return nil
}

// ── Mock SessionChangeLogRepository ──

type mockChangeLogRepo struct{ m *mockStore }

func (r *mockChangeLogRepo) Create(_ context.Context, log *model.SessionChangeLog) error {
	if log.ChangeLogID == "" {
		log.ChangeLogID = r.m.nextID("log")
	}
	r.m.changeLogs = append(r.m.changeLogs, *log)
	return nil
}

func (r *mockChangeLogRepo) ListBySession(_ context.Context, sessionID string, offset, limit int) ([]model.SessionChangeLog, int64, error) {
	var result []model.SessionChangeLog
	for _, l := range r.m.changeLogs {
		if l.SessionID == sessionID {
			result = append(result, l)
		}
	}
	total := int64(len(result))
	if offset >= len(result) {
		return []model.SessionChangeLog{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock 主数据仓储 ──

type mockSubjectRepo struct{ m *mockStore }

func (r *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := r.m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockTeacherRepo struct{ m *mockStore }

func (r *mockTeacherRepo) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	if t, ok := r.m.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockRoomRepo struct{ m *mockStore }

func (r *mockRoomRepo) GetByCode(_ context.Context, code string) (*model.Room, error) {
	if room, ok := r.m.rooms[code]; ok {
		cp := *room
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockRoomRepo) ListActive(_ context.Context) ([]model.Room, error) {
	var result []model.Room
	for _, room := range r.m.rooms {
		if room.IsActive {
			result = append(result, *room)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoomCode < result[j].RoomCode })
	return result, nil
}

type mockStudentRepo struct{ m *mockStore }

func (r *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := r.m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── 测试数据 ──

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedCatalog 写入课程、教师、教室、学生主数据
//
//	sub-std   15 次课（线下 10 + 线上 5）
//	sub-ext   16 次课（线下 12 + 线上 4），产生 2 次补课
//	sub-cr3   仅配置 3 学分，按学分推算
func seedCatalog(m *mockStore) {
	m.subjects["sub-std"] = &model.Subject{SubjectID: "sub-std", SubjectCode: "CS101", Name: "程序设计", Credits: 3,
		TotalSessions: 15, InPersonSessions: 10, ELearningSessions: 5}
	m.subjects["sub-ext"] = &model.Subject{SubjectID: "sub-ext", SubjectCode: "CS201", Name: "数据结构", Credits: 4,
		TotalSessions: 16, InPersonSessions: 12, ELearningSessions: 4}
	m.subjects["sub-cr3"] = &model.Subject{SubjectID: "sub-cr3", SubjectCode: "MA101", Name: "高等数学", Credits: 3}

	m.teachers["t-1"] = &model.Teacher{TeacherID: "t-1", TeacherCode: "GV001", FullName: "Nguyen Van A", IsActive: true}
	m.teachers["t-2"] = &model.Teacher{TeacherID: "t-2", TeacherCode: "GV002", FullName: "Tran Thi B", IsActive: true}
	m.teachers["t-off"] = &model.Teacher{TeacherID: "t-off", TeacherCode: "GV099", FullName: "Le Van C", IsActive: false}

	for _, code := range []string{"A201", "B105", "C301"} {
		m.rooms[code] = &model.Room{RoomID: "room-" + code, RoomCode: code, Capacity: 60, IsActive: true}
	}
	m.rooms["X999"] = &model.Room{RoomID: "room-X999", RoomCode: "X999", IsActive: false}

	m.students["stu-1"] = &model.Student{StudentID: "stu-1", StudentCode: "SV001", FullName: "Pham Minh D"}
	m.students["stu-2"] = &model.Student{StudentID: "stu-2", StudentCode: "SV002", FullName: "Vo Thi E"}
}

// seedSemester 写入学期 2026-01-05 ~ 2026-03-15
func seedSemester(m *mockStore, code, status string) *model.Semester {
	sem := &model.Semester{
		SemesterID:          "sem-" + code,
		Code:                code,
		Name:                "学期 " + code,
		StartDate:           day(2026, 1, 5),
		EndDate:             day(2026, 3, 15),
		Status:              status,
		RegistrationEnabled: true,
	}
	m.semesters[sem.SemesterID] = sem
	return sem
}
